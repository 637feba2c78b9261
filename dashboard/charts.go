package dashboard

import (
	"bytes"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const chartHeight = "360px"

func chartOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GaugeHTML renders one sales gauge reading as a standalone page.
func GaugeHTML(r GaugeReading) (string, error) {
	gauge := charts.NewGauge()
	gauge.SetGlobalOptions(chartOptions("Sales performance", string(r.Period))...)
	gauge.AddSeries(string(r.Period), []opts.GaugeData{
		{Name: "target reached", Value: math.Round(r.Percentage*10) / 10},
	})
	return renderChart(gauge)
}

// HeatmapHTML renders the visitor heatmap.
func HeatmapHTML(h Heatmap) (string, error) {
	max := 0
	data := make([]opts.HeatMapData, 0, len(h.Days)*len(h.Slots))
	for d, row := range h.Counts {
		for s, n := range row {
			if n > max {
				max = n
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{s, d, n}})
		}
	}

	subtitle := ""
	if h.BusiestDay != "" {
		subtitle = "Busiest day: " + h.BusiestDay
	}
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(chartOptions("Visitors", subtitle),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      h.Days,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(max),
			InRange:    &opts.VisualMapInRange{Color: []string{"#f0f9e8", "#7bccc4", "#0868ac"}},
		}),
	)...)
	hm.SetXAxis(h.Slots)
	hm.AddSeries("visits", data)
	return renderChart(hm)
}

// PerformanceHTML renders daily orders and revenue as lines.
func PerformanceHTML(days []DailyPerformance) (string, error) {
	labels := make([]string, 0, len(days))
	orders := make([]opts.LineData, 0, len(days))
	revenue := make([]opts.LineData, 0, len(days))
	for _, d := range days {
		labels = append(labels, d.Date)
		orders = append(orders, opts.LineData{Value: d.Orders})
		revenue = append(revenue, opts.LineData{Value: d.Revenue})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(append(chartOptions("Transaction performance", "last 7 days"),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}))...)
	line.SetXAxis(labels).
		AddSeries("Orders", orders).
		AddSeries("Revenue", revenue)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return renderChart(line)
}
