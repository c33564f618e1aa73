package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/clustercharge/core/charging/logging"
)

// WriteLoadChartHTML renders the budget and the grid draw of every cluster
// found in records as an HTML line chart. Ticks missing from a cluster's
// records are left as gaps.
func WriteLoadChartHTML(w io.Writer, records []logging.LogRecord) error {
	type point struct{ budget, grid float64 }
	series := map[string]map[time.Time]point{}
	stamps := map[time.Time]bool{}
	for _, r := range records {
		if r.Fault != "" {
			continue
		}
		var grid float64
		for _, g := range r.Grants {
			grid += g.GridKW
		}
		if series[r.ClusterID] == nil {
			series[r.ClusterID] = map[time.Time]point{}
		}
		ts := r.Timestamp.UTC()
		series[r.ClusterID][ts] = point{budget: r.BudgetKW, grid: grid}
		stamps[ts] = true
	}

	axis := make([]time.Time, 0, len(stamps))
	for ts := range stamps {
		axis = append(axis, ts)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	labels := make([]string, len(axis))
	for i, ts := range axis {
		labels[i] = ts.Format("2006-01-02 15:04")
	}
	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cluster load"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
	)
	line.SetXAxis(labels)
	for _, id := range ids {
		budget := make([]opts.LineData, len(axis))
		grid := make([]opts.LineData, len(axis))
		for i, ts := range axis {
			if p, ok := series[id][ts]; ok {
				budget[i] = opts.LineData{Value: p.budget}
				grid[i] = opts.LineData{Value: p.grid}
			}
		}
		line.AddSeries(id+" budget", budget).AddSeries(id+" grid", grid)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
