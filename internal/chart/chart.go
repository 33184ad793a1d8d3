// Package chart renders track visualisations. Static PNG output uses
// gonum/plot; interactive cluster views are rendered as self-contained
// ECharts HTML documents.
package chart

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/route.report/internal/cluster"
	"github.com/banshee-data/route.report/internal/track"
)

// DefaultTrackFile is where SaveTrackPNG writes when no path is given.
const DefaultTrackFile = "track.png"

// SaveTrackPNG plots a track's elevation profile against cumulative
// distance travelled and writes it to path as a PNG.
func SaveTrackPNG(t *track.Track, path string) error {
	if path == "" {
		path = DefaultTrackFile
	}

	p := plot.New()
	p.Title.Text = "Elevation Profile"
	p.X.Label.Text = "Distance (km)"
	p.Y.Label.Text = "Elevation (m)"

	pts := make(plotter.XYs, 0, t.Len())
	distance := 0.0
	pts = append(pts, plotter.XY{X: 0, Y: float64(t.Elevation[0])})
	for i := 1; i < t.Len(); i++ {
		rise := t.Elevation[i] - t.Elevation[i-1]
		distance += track.SegmentDistance(rise)
		pts = append(pts, plotter.XY{X: distance, Y: float64(t.Elevation[i])})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build elevation line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("elevation", line)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// SavePathPNG plots the track's route through the map grid, marking the
// start and end cells, and writes it to path as a PNG.
func SavePathPNG(t *track.Track, path string) error {
	if path == "" {
		path = DefaultTrackFile
	}

	p := plot.New()
	p.Title.Text = "Track Path"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	cells := t.Path()
	pts := make(plotter.XYs, len(cells))
	for i, c := range cells {
		pts[i] = plotter.XY{X: float64(c[0]), Y: float64(c[1])}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build path line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	ends, err := plotter.NewScatter(plotter.XYs{pts[0], pts[len(pts)-1]})
	if err != nil {
		return fmt.Errorf("failed to build endpoint markers: %w", err)
	}
	ends.GlyphStyle.Radius = vg.Points(3)
	p.Add(ends)
	p.Legend.Add("route", line)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// ClusterScatterHTML renders the clustered feature points as an ECharts
// scatter plot, one series per cluster, and writes the HTML document to w.
// Points are plotted as CO2 against journey time; distance drives the
// symbol size so all three features stay visible.
func ClusterScatterHTML(points []cluster.Point, groups [][]int, w io.Writer) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track Clusters", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track Clusters", Subtitle: fmt.Sprintf("points=%d clusters=%d", len(points), len(groups))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "CO2 (kg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Time (h)", NameLocation: "middle", NameGap: 30}),
	)

	for c, members := range groups {
		data := make([]opts.ScatterData, 0, len(members))
		for _, i := range members {
			if i < 0 || i >= len(points) || len(points[i]) < 3 {
				return fmt.Errorf("cluster %d references invalid point %d", c, i)
			}
			p := points[i]
			// Scale distance into a readable symbol size range.
			size := int(math.Round(4 + p[2]))
			data = append(data, opts.ScatterData{
				Value:      []interface{}{p[0], p[1]},
				SymbolSize: size,
			})
		}
		scatter.AddSeries(fmt.Sprintf("cluster %d", c), data)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
