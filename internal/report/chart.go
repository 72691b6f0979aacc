package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"qlbmcirq/internal/circuit"
)

// Row is one bar group of the gate chart.
type Row struct {
	Name  string
	Stats circuit.Stats
}

// GateChart builds a bar chart of gate count, depth and multi-qubit gate
// count per row.
func GateChart(title, subtitle string, rows []Row) *charts.Bar {
	names := make([]string, len(rows))
	gates := make([]opts.BarData, len(rows))
	depth := make([]opts.BarData, len(rows))
	multi := make([]opts.BarData, len(rows))
	for i, r := range rows {
		names[i] = r.Name
		gates[i] = opts.BarData{Value: r.Stats.Gates}
		depth[i] = opts.BarData{Value: r.Stats.Depth}
		multi[i] = opts.BarData{Value: r.Stats.MultiQubit}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "fragment", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(names).
		AddSeries("gates", gates).
		AddSeries("depth", depth).
		AddSeries("multi-qubit", multi)
	return bar
}

// WriteGateChart renders the gate chart as a standalone HTML page.
func WriteGateChart(w io.Writer, title, subtitle string, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no fragments to chart")
	}
	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(GateChart(title, subtitle, rows))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
