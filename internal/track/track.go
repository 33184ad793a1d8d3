// Package track models grid-walk road tracks and their fuel, CO2, time and
// distance characteristics.
//
// A track is a chain-code walk over an integer map grid with per-segment road
// type, terrain type and per-node elevation. Chain code digits move the
// cursor 1=east, 2=north, 3=west, 4=south. For a track of N nodes there are
// N-1 chain codes, road codes and terrain codes.
package track

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/route.report/internal/cluster"
)

// Track is a single route across the map.
type Track struct {
	Start     [2]int `json:"start"`
	ChainCode string `json:"cc"`
	Road      string `json:"road"`
	Terrain   string `json:"terrain"`
	Elevation []int  `json:"elevation"`
}

// Steps returns the number of grid moves in the track.
func (t *Track) Steps() int { return len(t.ChainCode) }

// Len returns the number of nodes (one more than the number of moves).
func (t *Track) Len() int { return len(t.ChainCode) + 1 }

func (t *Track) String() string {
	return fmt.Sprintf("<Track: starts at (%d, %d) - %d steps>", t.Start[0], t.Start[1], t.Steps())
}

// Corners returns the coordinates where the track changes direction,
// including the start and end points. A direction change is a move whose
// chain code differs in parity from the previous one (east/west vs
// north/south).
func (t *Track) Corners() [][2]int {
	pos := t.Start
	corners := [][2]int{t.Start}

	var prev byte
	for i := 0; i < len(t.ChainCode); i++ {
		dir := t.ChainCode[i]
		if i > 0 && (int(prev)-int(dir))%2 != 0 {
			corners = append(corners, pos)
		}
		switch dir {
		case '1':
			pos[0]++
		case '2':
			pos[1]++
		case '3':
			pos[0]--
		case '4':
			pos[1]--
		}
		prev = dir
	}
	corners = append(corners, pos)
	return corners
}

// Path returns the full sequence of node coordinates visited by the track.
func (t *Track) Path() [][2]int {
	pos := t.Start
	path := make([][2]int, 0, t.Len())
	path = append(path, pos)
	for i := 0; i < len(t.ChainCode); i++ {
		switch t.ChainCode[i] {
		case '1':
			pos[0]++
		case '2':
			pos[1]++
		case '3':
			pos[0]--
		case '4':
			pos[1]--
		}
		path = append(path, pos)
	}
	return path
}

// SegmentDistance is the length in km of one grid step given the elevation
// change in metres, the 1 km horizontal run plus the vertical component.
func SegmentDistance(heightDiff int) float64 {
	dh := float64(heightDiff) / 1000
	return math.Sqrt(1 + dh*dh)
}

// Distance returns the length of the track in km.
func (t *Track) Distance() float64 {
	var total float64
	for i := 1; i < len(t.Elevation); i++ {
		total += SegmentDistance(t.Elevation[i] - t.Elevation[i-1])
	}
	return total
}

// CO2 returns the kilograms of CO2 released traversing the track under the
// given scoring parameters. Call p.Validate once after constructing custom
// parameters; the per-segment lookups here assume complete tables.
func (t *Track) CO2(p ScoringParams) float64 {
	var co2 float64
	for i := 1; i < len(t.Elevation); i++ {
		heightDiff := t.Elevation[i] - t.Elevation[i-1]
		dist := SegmentDistance(heightDiff)
		slope := float64(heightDiff) / 10

		fr := p.RoadFactors[Road(t.Road[i-1])]
		ft := p.TerrainFactors[Terrain(t.Terrain[i-1])]
		fs := p.SlopeFactors[slopeBand(slope)]

		co2 += p.BaseConsumption * ft * fr * fs * dist * p.CO2PerLitre / 100
	}
	return co2
}

// Time returns the hours taken to traverse the track at the per-road average
// speeds of the given scoring parameters.
func (t *Track) Time(p ScoringParams) float64 {
	var hours float64
	for i := 1; i < len(t.Elevation); i++ {
		dist := SegmentDistance(t.Elevation[i] - t.Elevation[i-1])
		hours += dist / p.RoadSpeeds[Road(t.Road[i-1])]
	}
	return hours
}

// TrackSet is a group of tracks sharing a start, end and map, as returned by
// one query against the track service.
type TrackSet struct {
	Start   [2]int
	End     [2]int
	MapSize [2]int
	Date    time.Time
	Tracks  []Track
}

// Len returns the number of tracks in the set.
func (ts *TrackSet) Len() int { return len(ts.Tracks) }

func (ts *TrackSet) String() string {
	return fmt.Sprintf("<TrackSet: %d from (%d, %d) to (%d, %d)>",
		len(ts.Tracks), ts.Start[0], ts.Start[1], ts.End[0], ts.End[1])
}

// ErrNoTracks is returned by selectors on an empty set.
var ErrNoTracks = fmt.Errorf("no tracks stored")

// Greenest returns the track releasing the least CO2.
func (ts *TrackSet) Greenest(p ScoringParams) (*Track, error) {
	return ts.minBy(func(t *Track) float64 { return t.CO2(p) })
}

// Fastest returns the track with the smallest traversal time.
func (ts *TrackSet) Fastest(p ScoringParams) (*Track, error) {
	return ts.minBy(func(t *Track) float64 { return t.Time(p) })
}

// Shortest returns the track with the smallest distance.
func (ts *TrackSet) Shortest() (*Track, error) {
	return ts.minBy(func(t *Track) float64 { return t.Distance() })
}

func (ts *TrackSet) minBy(score func(*Track) float64) (*Track, error) {
	if len(ts.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	best := 0
	min := score(&ts.Tracks[0])
	for i := 1; i < len(ts.Tracks); i++ {
		if s := score(&ts.Tracks[i]); s < min {
			min = s
			best = i
		}
	}
	return &ts.Tracks[best], nil
}

// Get returns the i-th track.
func (ts *TrackSet) Get(i int) (*Track, error) {
	if len(ts.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	if i < 0 || i >= len(ts.Tracks) {
		return nil, fmt.Errorf("track %d out of range (%d tracks stored)", i, len(ts.Tracks))
	}
	return &ts.Tracks[i], nil
}

// FeaturePoints projects every track to its (co2, time, distance) feature
// vector, the representation the clustering engine consumes.
func (ts *TrackSet) FeaturePoints(p ScoringParams) []cluster.Point {
	points := make([]cluster.Point, len(ts.Tracks))
	for i := range ts.Tracks {
		t := &ts.Tracks[i]
		points[i] = cluster.Point{t.CO2(p), t.Time(p), t.Distance()}
	}
	return points
}

// ClusterTracks groups tracks with similar CO2, time and distance using the
// given clusterer. It returns, per cluster id, the indices of the member
// tracks.
func (ts *TrackSet) ClusterTracks(c cluster.Clusterer, p ScoringParams) ([][]int, error) {
	points := ts.FeaturePoints(p)
	ps, err := cluster.NewPointSet(points)
	if err != nil {
		return nil, err
	}
	res, err := c.Cluster(ps)
	if err != nil {
		return nil, err
	}

	groups := make([][]int, len(res))
	used := make([]bool, len(points))
	for id, cl := range res {
		groups[id] = []int{}
		for _, m := range cl.Members {
			for idx := range points {
				if used[idx] {
					continue
				}
				if equalPoint(points[idx], m) {
					groups[id] = append(groups[id], idx)
					used[idx] = true
					break
				}
			}
		}
	}
	return groups, nil
}

func equalPoint(a, b cluster.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
