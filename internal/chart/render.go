package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/query"
)

var ErrNoData = errors.New("nothing to draw")

const (
	width  = 1500
	height = 500
)

var percentTicks = []gochart.Tick{
	{Value: 0, Label: "0%"},
	{Value: 0.2, Label: "20%"},
	{Value: 0.5, Label: "50%"},
	{Value: 0.7, Label: "70%"},
	{Value: 1, Label: "100%"},
}

func renderer(format string) (gochart.RendererProvider, error) {
	switch format {
	case query.FormatSVG:
		return gochart.SVG, nil
	case query.FormatPNG:
		return gochart.PNG, nil
	}
	return nil, fmt.Errorf("unsupported image format %q", format)
}

func timeAxis(start, end time.Time) gochart.XAxis {
	layout := "01-02 15:04"
	if end.Sub(start) > 7*24*time.Hour {
		layout = "2006-01-02"
	}
	return gochart.XAxis{
		ValueFormatter: gochart.TimeValueFormatterWithFormat(layout),
		Range: &gochart.ContinuousRange{
			Min: gochart.TimeToFloat64(start),
			Max: gochart.TimeToFloat64(end),
		},
	}
}

func percentAxis() gochart.YAxis {
	return gochart.YAxis{
		Range: &gochart.ContinuousRange{Min: 0, Max: 1},
		Ticks: percentTicks,
	}
}

func thresholdLine(name string, start, end time.Time, level float64, style gochart.Style) gochart.TimeSeries {
	return gochart.TimeSeries{
		Name:    name,
		Style:   style,
		XValues: []time.Time{start, end},
		YValues: []float64{level, level},
	}
}

// Uptime draws the bucket series of res. Empty buckets break the line.
func Uptime(w io.Writer, res domain.AggregateResult, format string) error {
	rp, err := renderer(format)
	if err != nil {
		return err
	}
	if res.NoData() {
		return ErrNoData
	}

	style := gochart.Style{StrokeColor: gochart.ColorBlue, StrokeWidth: 2, DotWidth: 3, DotColor: gochart.ColorBlue}
	var (
		series []gochart.Series
		cur    gochart.TimeSeries
	)
	flush := func() {
		if len(cur.XValues) > 0 {
			if len(series) == 0 {
				cur.Name = "Uptime"
			}
			cur.Style = style
			series = append(series, cur)
		}
		cur = gochart.TimeSeries{}
	}
	for _, b := range res.Series {
		if b.UptimeFraction == nil {
			flush()
			continue
		}
		cur.XValues = append(cur.XValues, b.Start)
		cur.YValues = append(cur.YValues, *b.UptimeFraction)
	}
	flush()

	c := gochart.Chart{
		Title:  fmt.Sprintf("Uptime per %s", time.Duration(res.BucketWidth)),
		Width:  width,
		Height: height,
		XAxis:  timeAxis(res.WindowStart, res.WindowEnd),
		YAxis:  percentAxis(),
		Series: series,
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return c.Render(rp, w)
}

// Rolling draws the rolling uptime graph with the disruption thresholds.
func Rolling(w io.Writer, g query.Graph, format string) error {
	rp, err := renderer(format)
	if err != nil {
		return err
	}

	style := gochart.Style{StrokeColor: gochart.ColorBlue, StrokeWidth: 1.5}
	series := make([]gochart.Series, 0, len(g.Runs)+2)
	for i, run := range g.Runs {
		ts := gochart.TimeSeries{
			Style:   style,
			XValues: make([]time.Time, len(run)),
			YValues: make([]float64, len(run)),
		}
		if i == 0 {
			ts.Name = "Uptime"
		}
		for j, p := range run {
			ts.XValues[j] = p.At
			ts.YValues[j] = p.UptimeFraction
		}
		series = append(series, ts)
	}
	series = append(series,
		thresholdLine("Disruption end threshold", g.Start, g.End, g.EndAbove,
			gochart.Style{StrokeColor: gochart.ColorGreen, StrokeWidth: 1, StrokeDashArray: []float64{5, 5}}),
		thresholdLine("Disruption start threshold", g.Start, g.End, g.StartBelow,
			gochart.Style{StrokeColor: gochart.ColorRed, StrokeWidth: 1, StrokeDashArray: []float64{5, 5}}),
	)

	c := gochart.Chart{
		Title:  "Rolling uptime, last 24 hours",
		Width:  width,
		Height: height,
		XAxis:  timeAxis(g.Start, g.End),
		YAxis:  percentAxis(),
		Series: series,
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return c.Render(rp, w)
}
