package web

import (
	"strconv"
	"strings"

	"teammood/internal/application/projections"
	moodDomain "teammood/internal/domain/mood"
)

// Trend chart geometry in SVG user units.
const (
	chartWidth     = 640
	chartHeight    = 260
	chartPadLeft   = 36
	chartPadRight  = 16
	chartPadTop    = 12
	chartPadBottom = 32
	chartMaxLabels = 6
)

// ChartTick is one labelled axis position.
type ChartTick struct {
	Pos   float64
	Label string
}

// ChartPoint is one plotted average.
type ChartPoint struct {
	X, Y  float64
	Date  string
	Value string
}

// ChartLine is one team's series. Segments holds polyline point lists;
// a day without submissions breaks the line.
type ChartLine struct {
	Name     string
	Color    string
	Segments []string
	Points   []ChartPoint
}

// TrendChart is the SVG model rendered by the dashboard.
type TrendChart struct {
	Width, Height       int
	PlotLeft, PlotRight float64
	PlotTop, PlotBottom float64
	YTicks              []ChartTick
	XTicks              []ChartTick
	Lines               []ChartLine
	Empty               bool
}

// buildTrendChart lays out trend series on a 0..5 scale.
// PRE: every series has len(Values) == len(Counts) == len(res.Dates)
// POST: Empty is set when there is nothing to plot
func buildTrendChart(res projections.GetMoodTrendsResult) TrendChart {
	c := TrendChart{
		Width:      chartWidth,
		Height:     chartHeight,
		PlotLeft:   chartPadLeft,
		PlotRight:  chartWidth - chartPadRight,
		PlotTop:    chartPadTop,
		PlotBottom: chartHeight - chartPadBottom,
	}
	for v := 0; v <= moodDomain.MaxValue; v++ {
		c.YTicks = append(c.YTicks, ChartTick{Pos: c.yFor(float64(v)), Label: strconv.Itoa(v)})
	}

	n := len(res.Dates)
	if n == 0 || len(res.Series) == 0 {
		c.Empty = true
		return c
	}

	step := (n + chartMaxLabels - 1) / chartMaxLabels
	for i, d := range res.Dates {
		if i%step == 0 || i == n-1 {
			c.XTicks = append(c.XTicks, ChartTick{Pos: c.xFor(i, n), Label: shortDate(d)})
		}
	}

	for _, s := range res.Series {
		line := ChartLine{Name: s.Name, Color: s.Color}
		var seg []string
		flush := func() {
			if len(seg) > 1 {
				line.Segments = append(line.Segments, strings.Join(seg, " "))
			}
			seg = nil
		}
		for i := range res.Dates {
			if s.Counts[i] == 0 {
				flush()
				continue
			}
			x, y := c.xFor(i, n), c.yFor(s.Values[i])
			seg = append(seg, formatCoord(x)+","+formatCoord(y))
			line.Points = append(line.Points, ChartPoint{
				X: x, Y: y,
				Date:  res.Dates[i],
				Value: strconv.FormatFloat(s.Values[i], 'f', 1, 64),
			})
		}
		flush()
		c.Lines = append(c.Lines, line)
	}
	return c
}

func (c TrendChart) xFor(i, n int) float64 {
	if n == 1 {
		return (c.PlotLeft + c.PlotRight) / 2
	}
	return c.PlotLeft + float64(i)*(c.PlotRight-c.PlotLeft)/float64(n-1)
}

func (c TrendChart) yFor(v float64) float64 {
	return c.PlotBottom - v/float64(moodDomain.MaxValue)*(c.PlotBottom-c.PlotTop)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// shortDate turns YYYY-MM-DD into MM-DD for axis labels.
func shortDate(key string) string {
	if len(key) == len(moodDomain.DateLayout) {
		return key[5:]
	}
	return key
}
