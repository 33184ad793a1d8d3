// Package trackio loads track sets from JSON documents and from the remote
// track query service, validating schema and content before anything reaches
// the track model.
package trackio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/route.report/internal/track"
)

// TimeLayout is the timestamp format used by the track service metadata.
const TimeLayout = "2006-01-02T15:04:05"

// wire types mirror the service's JSON schema:
//
//	{"metadata": {"datetime", "start", "end", "mapsize"},
//	 "tracks": [{"cc", "road", "terrain", "elevation"}, ...]}
//
// Pointer fields distinguish missing keys from zero values so schema errors
// name the absent key.
type wireDocument struct {
	Metadata *wireMetadata `json:"metadata"`
	Tracks   []wireTrack   `json:"tracks"`
}

type wireMetadata struct {
	Datetime *string `json:"datetime"`
	Start    []int   `json:"start"`
	End      []int   `json:"end"`
	MapSize  []int   `json:"mapsize"`
}

type wireTrack struct {
	CC        *string `json:"cc"`
	Road      *string `json:"road"`
	Terrain   *string `json:"terrain"`
	Elevation []int   `json:"elevation"`
}

// Load reads and validates a track set from a JSON file.
func Load(path string) (*track.TrackSet, error) {
	if ext := filepath.Ext(path); ext != ".json" {
		return nil, fmt.Errorf("track file must have .json extension, got %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()
	ts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// Decode parses and validates a track set document.
func Decode(r io.Reader) (*track.TrackSet, error) {
	var doc wireDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse track JSON: %w", err)
	}

	if doc.Metadata == nil {
		return nil, fmt.Errorf("missing key %q in track document", "metadata")
	}
	if doc.Tracks == nil {
		return nil, fmt.Errorf("missing key %q in track document", "tracks")
	}

	md := doc.Metadata
	if md.Datetime == nil {
		return nil, fmt.Errorf("missing metadata key %q", "datetime")
	}
	date, err := time.Parse(TimeLayout, *md.Datetime)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata datetime %q: %w", *md.Datetime, err)
	}

	start, err := coordinate("start", md.Start)
	if err != nil {
		return nil, err
	}
	end, err := coordinate("end", md.End)
	if err != nil {
		return nil, err
	}
	mapSize, err := coordinate("mapsize", md.MapSize)
	if err != nil {
		return nil, err
	}
	if err := validateGeometry(start, end, mapSize); err != nil {
		return nil, err
	}

	ts := &track.TrackSet{
		Start:   start,
		End:     end,
		MapSize: mapSize,
		Date:    date,
		Tracks:  make([]track.Track, 0, len(doc.Tracks)),
	}
	for i, wt := range doc.Tracks {
		if wt.CC == nil || wt.Road == nil || wt.Terrain == nil {
			return nil, fmt.Errorf("track %d: missing one of keys cc, road, terrain", i)
		}
		if wt.Elevation == nil {
			return nil, fmt.Errorf("track %d: missing key %q", i, "elevation")
		}
		if err := ValidateTrack(*wt.CC, *wt.Road, *wt.Terrain, wt.Elevation); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		ts.Tracks = append(ts.Tracks, track.Track{
			Start:     start,
			ChainCode: *wt.CC,
			Road:      *wt.Road,
			Terrain:   *wt.Terrain,
			Elevation: wt.Elevation,
		})
	}
	return ts, nil
}

// Encode writes ts in the service's wire format. It is the inverse of Decode
// and feeds both saved query results and the replay endpoint.
func Encode(w io.Writer, ts *track.TrackSet) error {
	doc := wireDocument{
		Metadata: &wireMetadata{
			Datetime: ptr(ts.Date.Format(TimeLayout)),
			Start:    []int{ts.Start[0], ts.Start[1]},
			End:      []int{ts.End[0], ts.End[1]},
			MapSize:  []int{ts.MapSize[0], ts.MapSize[1]},
		},
		Tracks: make([]wireTrack, len(ts.Tracks)),
	}
	for i := range ts.Tracks {
		t := &ts.Tracks[i]
		doc.Tracks[i] = wireTrack{
			CC:        &t.ChainCode,
			Road:      &t.Road,
			Terrain:   &t.Terrain,
			Elevation: t.Elevation,
		}
	}
	return json.NewEncoder(w).Encode(&doc)
}

func ptr(s string) *string { return &s }
