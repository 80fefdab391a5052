package report

import (
	"context"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
)

// SalesChart renders the daily sales series as a PNG bar chart.
func (s *Service) SalesChart(ctx context.Context, r interfaces.DateRange, w io.Writer) error {
	series, err := s.DailySales(ctx, r)
	if err != nil {
		return err
	}
	return RenderSalesChart(series, w)
}

// RenderSalesChart draws one bar per day. Labels are "02 Jan".
func RenderSalesChart(series []models.DailySales, w io.Writer) error {
	if len(series) == 0 {
		return models.Invalidf("no sales to chart")
	}

	const barWidth, barSpacing = 24, 8
	bars := make([]chart.Value, len(series))
	peak := 1.0
	for i, p := range series {
		v := p.Total.InexactFloat64()
		if v > peak {
			peak = v
		}
		bars[i] = chart.Value{
			Label: p.Date.Format("02 Jan"),
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("2563eb"), // blue-600
				StrokeColor: drawing.ColorFromHex("1d4ed8"),
				StrokeWidth: 1,
			},
		}
	}

	width := 160 + len(series)*(barWidth+barSpacing)
	if width < 640 {
		width = 640
	}

	graph := chart.BarChart{
		Title:  "Daily Sales",
		Width:  width,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("chart render failed: %w", err)
	}
	return nil
}
