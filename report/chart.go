package report

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/gonum/stat"

	"github.com/microseq/bacflow/checkpoint"
	"github.com/microseq/bacflow/registry"
)

// ReadStats summarizes trimmed read counts across the certified
// samples.
func ReadStats(decisions []checkpoint.Decision) (mean, median float64) {
	var xs []float64
	for _, d := range decisions {
		if d.State == checkpoint.Certified {
			xs = append(xs, float64(d.Reads))
		}
	}
	if len(xs) == 0 {
		return 0, 0
	}
	sort.Float64s(xs)
	return stat.Mean(xs, nil), stat.Quantile(0.5, stat.Empirical, xs, nil)
}

// WriteRunChart renders the per-run HTML summary: reads per sample
// after trimming and the organism distribution of the run.
func WriteRunChart(tbl *registry.Table, decisions []checkpoint.Decision, title, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: title + " reads per sample"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Reads after trimming"}),
	)
	var samples []string
	var readData []opts.BarData
	for _, d := range decisions {
		samples = append(samples, d.Sample)
		readData = append(readData, opts.BarData{Value: d.Reads})
	}
	bar.SetXAxis(samples).AddSeries("reads", readData)

	counts := map[string]int{}
	for _, s := range tbl.Samples {
		org := s.Organism
		if org == "" {
			org = registry.UnknownOrganism
		}
		counts[org]++
	}
	orgs := make([]string, 0, len(counts))
	for org := range counts {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	var pieData []opts.PieData
	for _, org := range orgs {
		pieData = append(pieData, opts.PieData{Name: org, Value: counts[org]})
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: title + " organisms"}),
	)
	pie.AddSeries("organisms", pieData)

	page := components.NewPage()
	page.AddCharts(bar, pie)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
