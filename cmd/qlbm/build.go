package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"qlbmcirq/internal/boundary"
	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/cqlbm"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/lqlga"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/reflection"
	"qlbmcirq/internal/spacetime"
	"qlbmcirq/internal/store"
)

// buildOptions carries the command line overrides of the run block.
type buildOptions struct {
	logf        monitoring.Logf
	timesteps   int
	barriers    bool
	inside      bool
	volumetric  bool
	measurement bool
}

func (o buildOptions) effectiveTimesteps(spec *config.Spec) int {
	if o.timesteps != 0 {
		return o.timesteps
	}
	return spec.GetRun().GetTimesteps()
}

// cacheKey identifies the fragments compiled from spec with opts. Options
// that change the emitted circuits are folded into the configuration hash.
func cacheKey(spec *config.Spec, opts buildOptions) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s t=%d barriers=%t inside=%t volumetric=%t measurement=%t",
		spec.Hash(), opts.effectiveTimesteps(spec), opts.barriers, opts.inside, opts.volumetric, opts.measurement))
	return hex.EncodeToString(sum[:])
}

// build is a compiled configuration in either encoding.
type build struct {
	spec      *config.Spec
	hash      string
	name      string
	dims      []int
	layout    []lattice.Register
	obstacles []geometry.Obstacle
	program   *circuit.Circuit
	stats     interface{}
	fragments []store.Fragment

	// reflections is only set for the collisionless encoding.
	reflections []*reflection.Reflections
}

func (b *build) statsJSON() ([]byte, error) {
	return json.MarshalIndent(b.stats, "", "  ")
}

// compileSpec compiles spec with the encoding its velocity block selects.
func compileSpec(spec *config.Spec, opts buildOptions) (*build, error) {
	switch spec.Lattice.Discretization {
	case "":
		return compileCollisionless(spec, opts)
	case "D1Q2":
		return compileLQLGA(spec, opts)
	}
	return compileSpaceTime(spec, opts)
}

func compileCollisionless(spec *config.Spec, opts buildOptions) (*build, error) {
	l, err := lattice.New(*spec, lattice.Options{Logf: opts.logf})
	if err != nil {
		return nil, err
	}
	p, err := cqlbm.Compile(l, opts.effectiveTimesteps(spec), cqlbm.Options{Logf: opts.logf, Barriers: opts.barriers})
	if err != nil {
		return nil, err
	}
	frags, err := boundary.Fragments(l)
	if err != nil {
		return nil, err
	}

	b := &build{
		spec:        spec,
		hash:        cacheKey(spec, opts),
		name:        l.String(),
		dims:        l.Dims(),
		layout:      l.Layout(),
		obstacles:   l.Obstacles(),
		program:     p.Circuit,
		stats:       p.Stats,
		reflections: l.Reflections(),
	}
	for _, f := range frags {
		b.fragments = append(b.fragments, store.NewFragment(b.hash, f))
	}
	b.fragments = append(b.fragments, store.FromCircuit(b.hash, "lattice", "step", "step", p.Step))
	return b, nil
}

func compileSpaceTime(spec *config.Spec, opts buildOptions) (*build, error) {
	l, err := spacetime.New(*spec, spacetime.Options{
		Logf:        opts.logf,
		Timesteps:   opts.timesteps,
		Measurement: opts.measurement,
		Volumetric:  opts.volumetric,
	})
	if err != nil {
		return nil, err
	}
	p, err := spacetime.Compile(l, spacetime.CompileOptions{
		Logf:          opts.logf,
		IncludeInside: opts.inside,
		Barriers:      opts.barriers,
	})
	if err != nil {
		return nil, err
	}

	all := make([]int, l.NumQubits())
	for i := range all {
		all[i] = i
	}
	c := circuit.New("stqbm", l.NumQubits())
	c.MustCompose(spacetime.InitialConditions(l, nil, opts.inside), all)
	c.MustCompose(p.Circuit, all)
	c.MustCompose(spacetime.GridVelocityMeasurement(l), all)
	if err := c.Err(); err != nil {
		return nil, err
	}

	b := &build{
		spec:      spec,
		hash:      cacheKey(spec, opts),
		name:      l.String(),
		dims:      l.Dims(),
		layout:    l.Layout(),
		obstacles: l.Obstacles(),
		program:   c,
		stats:     p.Stats,
	}
	for _, op := range p.Operators {
		b.fragments = append(b.fragments, store.FromCircuit(b.hash, "lattice", op.Key(), op.Name, op.Circuit))
	}
	return b, nil
}

func compileLQLGA(spec *config.Spec, opts buildOptions) (*build, error) {
	l, err := lqlga.New(*spec, lqlga.Options{Logf: opts.logf, Timesteps: opts.timesteps})
	if err != nil {
		return nil, err
	}
	p, err := lqlga.Compile(l, lqlga.CompileOptions{Logf: opts.logf, Barriers: opts.barriers})
	if err != nil {
		return nil, err
	}
	ic, err := lqlga.InitialConditions(l, nil)
	if err != nil {
		return nil, err
	}

	all := make([]int, l.NumQubits())
	for i := range all {
		all[i] = i
	}
	c := circuit.New("lqlga", l.NumQubits())
	c.MustCompose(ic, all)
	c.MustCompose(p.Circuit, all)
	c.MustCompose(lqlga.GridVelocityMeasurement(l), all)
	if err := c.Err(); err != nil {
		return nil, err
	}

	b := &build{
		spec:      spec,
		hash:      cacheKey(spec, opts),
		name:      l.String(),
		dims:      l.Dims(),
		layout:    l.Layout(),
		obstacles: l.Obstacles(),
		program:   c,
		stats:     p.Stats,
	}
	for _, op := range p.Operators {
		b.fragments = append(b.fragments, store.FromCircuit(b.hash, "lattice", op.Name, op.Name, op.Circuit))
	}
	b.fragments = append(b.fragments, store.FromCircuit(b.hash, "lattice", "step", "step", p.Step))
	return b, nil
}

func (b *build) labels() []string {
	return lattice.Labels(b.layout, b.program.NumQubits)
}

// qubitLabels names the qubits of spec's lattice without compiling it.
func qubitLabels(spec *config.Spec, opts buildOptions) ([]string, error) {
	switch spec.Lattice.Discretization {
	case "":
		l, err := lattice.New(*spec, lattice.Options{Logf: opts.logf})
		if err != nil {
			return nil, err
		}
		return l.QubitLabels(), nil
	case "D1Q2":
		l, err := lqlga.New(*spec, lqlga.Options{Logf: opts.logf, Timesteps: opts.timesteps})
		if err != nil {
			return nil, err
		}
		return lattice.Labels(l.Layout(), l.NumQubits()), nil
	}
	l, err := spacetime.New(*spec, spacetime.Options{
		Logf:        opts.logf,
		Timesteps:   opts.timesteps,
		Measurement: opts.measurement,
		Volumetric:  opts.volumetric,
	})
	if err != nil {
		return nil, err
	}
	return lattice.Labels(l.Layout(), l.NumQubits()), nil
}

// loadFragments returns the cached fragments of spec and the wire labels of
// its lattice, compiling and caching the fragments when the cache has none.
func loadFragments(spec *config.Spec, cachePath string, opts buildOptions) (string, []string, []store.Fragment, error) {
	if cachePath == "" {
		b, err := compileSpec(spec, opts)
		if err != nil {
			return "", nil, nil, err
		}
		return b.name, b.labels(), b.fragments, nil
	}

	s, err := store.Open(cachePath, opts.logf)
	if err != nil {
		return "", nil, nil, err
	}
	defer s.Close()

	ctx := context.Background()
	key := cacheKey(spec, opts)
	cached, err := s.List(ctx, key)
	if err != nil {
		return "", nil, nil, err
	}
	if len(cached) > 0 {
		labels, err := qubitLabels(spec, opts)
		if err != nil {
			return "", nil, nil, err
		}
		return fmt.Sprintf("cached %s", key[:12]), labels, cached, nil
	}

	b, err := compileSpec(spec, opts)
	if err != nil {
		return "", nil, nil, err
	}
	if err := s.PutAll(ctx, b.fragments); err != nil {
		return "", nil, nil, err
	}
	return b.name, b.labels(), b.fragments, nil
}
