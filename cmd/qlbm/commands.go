package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/report"
	"qlbmcirq/internal/store"
)

// commonFlags are shared by every subcommand that compiles a configuration.
type commonFlags struct {
	timesteps   int
	inside      bool
	volumetric  bool
	measurement bool
	verbose     bool
	noBarriers  bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&c.timesteps, "timesteps", 0, "Number of time steps (overrides run.timesteps)")
	fs.BoolVar(&c.inside, "inside", false, "Space-time only: keep reflections at points inside obstacles")
	fs.BoolVar(&c.volumetric, "volumetric", false, "Space-time only: reflect block walls with comparators")
	fs.BoolVar(&c.measurement, "measurement", false, "Space-time only: add the mass measurement ancilla")
	fs.BoolVar(&c.verbose, "v", false, "Enable diagnostic logging")
	fs.BoolVar(&c.noBarriers, "no-barriers", false, "Do not separate operators with barriers")
}

// load parses the configuration named by the single positional argument and
// folds the flags into build options.
func (c *commonFlags) load(fs *flag.FlagSet, stderr io.Writer) (*config.Spec, buildOptions, error) {
	if fs.NArg() != 1 {
		return nil, buildOptions{}, fmt.Errorf("%s: expected one configuration file, got %d arguments", fs.Name(), fs.NArg())
	}
	spec, err := config.Load(fs.Arg(0))
	if err != nil {
		return nil, buildOptions{}, err
	}
	if c.timesteps != 0 {
		spec.Run = spec.GetRun().WithTimesteps(c.timesteps)
	}
	if c.verbose {
		spec.Run = spec.GetRun().WithVerbose(true)
	}
	if err := spec.Validate(); err != nil {
		return nil, buildOptions{}, err
	}

	opts := buildOptions{
		logf:        monitoring.Discard,
		timesteps:   c.timesteps,
		barriers:    spec.GetRun().GetBarriers() && !c.noBarriers,
		inside:      c.inside,
		volumetric:  c.volumetric,
		measurement: c.measurement,
	}
	if spec.GetRun().GetVerbose() {
		opts.logf = func(format string, v ...interface{}) {
			fmt.Fprintf(stderr, format+"\n", v...)
		}
	}
	return spec, opts, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func handleCompile(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("compile", stderr)
	var common commonFlags
	common.register(fs)
	output := fs.String("o", "-", "QASM output path, - for stdout")
	cache := fs.String("cache", "", "SQLite fragment cache path (overrides run.cache)")
	plotPath := fs.String("plot", "", "Geometry PNG path (overrides run.plot)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, opts, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	if *cache != "" {
		spec.Run = spec.GetRun().WithCache(*cache)
	}

	b, err := compileSpec(spec, opts)
	if err != nil {
		return err
	}

	qasm := b.program.ToQASM()
	if *output == "-" {
		if _, err := io.WriteString(stdout, qasm); err != nil {
			return err
		}
	} else if err := os.WriteFile(*output, []byte(qasm), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	opts.logf("Compiled %s into %d gates", b.name, b.program.Size())

	if path := spec.GetRun().GetCache(); path != "" {
		s, err := store.Open(path, opts.logf)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.PutAll(context.Background(), b.fragments); err != nil {
			return err
		}
	}

	plot := spec.GetRun().GetPlot()
	if *plotPath != "" {
		plot = *plotPath
	}
	if plot != "" {
		if err := report.SaveGeometry(plot, b.name, b.dims, b.obstacles); err != nil {
			return err
		}
	}
	return nil
}

func handleInspect(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, opts, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	b, err := compileSpec(spec, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\nconfig %s\n\n", b.name, b.hash)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGISTER\tQUBITS")
	for _, r := range b.layout {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, qubitRange(r.Qubits))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(b.obstacles) > 0 {
		fmt.Fprintln(stdout)
		tw = tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OBSTACLE\tSHAPE\tBOUNDS")
		for _, o := range b.obstacles {
			fmt.Fprintf(tw, "%s\t%s\t%v\n", o.ObstacleID(), o.Shape(), o.BoundingBox())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(b.reflections) > 0 {
		fmt.Fprintln(stdout)
		tw = tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OBSTACLE\tWALLS IN\tWALLS OUT\tEDGES\tNEAR EDGES\tNEAR POINTS\tOVERLAP\tCORNERS OUT\tCORNERS IN\tSHIELDED")
		for _, r := range b.reflections {
			c := r.Counts()
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n", r.ObstacleID,
				c.WallsInside, c.WallsOutside, c.CornerEdges, c.NearEdges,
				c.NearPoints, c.Overlapping, c.CornersOut, c.CornersIn, strings.Join(r.Shielded, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// qubitRange prints a contiguous register compactly.
func qubitRange(qs []int) string {
	switch len(qs) {
	case 0:
		return "-"
	case 1:
		return fmt.Sprintf("q[%d]", qs[0])
	}
	return fmt.Sprintf("q[%d..%d]", qs[0], qs[len(qs)-1])
}

func handleStats(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stats", stderr)
	var common commonFlags
	common.register(fs)
	html := fs.String("html", "", "Write a gate count chart to this HTML file")
	asJSON := fs.Bool("json", false, "Print the program statistics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, opts, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	b, err := compileSpec(spec, opts)
	if err != nil {
		return err
	}

	if *asJSON {
		data, err := b.statsJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FRAGMENT\tKIND\tQUBITS\tGATES\tDEPTH\tMULTI\t")
		var rows []report.Row
		for _, f := range b.fragments {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t\n", f.Key, f.Kind, f.Stats.Qubits, f.Stats.Gates, f.Stats.Depth, f.Stats.MultiQubit)
			rows = append(rows, report.Row{Name: f.Key, Stats: f.Stats})
		}
		total := circuit.ComputeStats(b.program)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t\n", "total", "program", total.Qubits, total.Gates, total.Depth, total.MultiQubit)
		if err := tw.Flush(); err != nil {
			return err
		}

		if *html != "" {
			f, err := os.Create(*html)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := report.WriteGateChart(f, "Gate counts", b.name, rows); err != nil {
				return err
			}
		}
	}
	return nil
}

func handlePlot(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("plot", stderr)
	var common commonFlags
	common.register(fs)
	output := fs.String("o", "", "PNG output path (default run.plot or geometry.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, opts, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	b, err := compileSpec(spec, opts)
	if err != nil {
		return err
	}
	path := *output
	if path == "" {
		path = spec.GetRun().GetPlot()
	}
	if path == "" {
		path = "geometry.png"
	}
	if err := report.SaveGeometry(path, b.name, b.dims, b.obstacles); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func handleView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", stderr)
	var common commonFlags
	common.register(fs)
	cache := fs.String("cache", "", "SQLite fragment cache path (overrides run.cache)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, opts, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	path := spec.GetRun().GetCache()
	if *cache != "" {
		path = *cache
	}
	title, labels, frags, err := loadFragments(spec, path, opts)
	if err != nil {
		return err
	}
	v, err := newViewer(title, labels, frags)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(v, tea.WithAltScreen(), tea.WithOutput(stdout)).Run()
	return err
}
