package trackio

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/route.report/internal/httputil"
	"github.com/banshee-data/route.report/internal/track"
)

// DefaultBaseURL is the public track query service.
const DefaultBaseURL = "http://ucl-rse-with-python.herokuapp.com"

// DefaultTrackCount is the number of tracks requested when QueryParams.NTracks
// is left zero.
const DefaultTrackCount = 300

// QueryParams describes one request against the track service.
type QueryParams struct {
	Start [2]int
	End   [2]int
	// MinStepsStraight and MaxStepsStraight bound the straight-run lengths of
	// generated tracks. A zero MaxStepsStraight defaults to
	// MinStepsStraight + 5.
	MinStepsStraight int
	MaxStepsStraight int
	// NTracks is the number of tracks to request; zero means
	// DefaultTrackCount.
	NTracks int
}

// withDefaults returns a copy with zero fields replaced by their defaults.
func (q QueryParams) withDefaults() QueryParams {
	if q.MinStepsStraight == 0 {
		q.MinStepsStraight = 1
	}
	if q.MaxStepsStraight == 0 {
		q.MaxStepsStraight = q.MinStepsStraight + 5
	}
	if q.NTracks == 0 {
		q.NTracks = DefaultTrackCount
	}
	return q
}

// Validate rejects parameter combinations the service would refuse.
func (q QueryParams) Validate() error {
	for _, c := range []struct {
		name string
		v    [2]int
	}{{"start", q.Start}, {"end", q.End}} {
		if c.v[0] < 0 || c.v[1] < 0 || c.v[0] >= MaxMapSize || c.v[1] >= MaxMapSize {
			return fmt.Errorf("coordinate %q (%d, %d) is outside the maximum map size", c.name, c.v[0], c.v[1])
		}
	}
	if q.MinStepsStraight < 0 || q.MaxStepsStraight < 0 || q.NTracks < 0 {
		return fmt.Errorf("steps straight and track count must be non-negative")
	}
	if q.MinStepsStraight > q.MaxStepsStraight {
		return fmt.Errorf("max steps straight (%d) must not be below min steps straight (%d)",
			q.MaxStepsStraight, q.MinStepsStraight)
	}
	return nil
}

// values encodes the query string the service expects.
func (q QueryParams) values() url.Values {
	v := url.Values{}
	v.Set("start_point_x", strconv.Itoa(q.Start[0]))
	v.Set("start_point_y", strconv.Itoa(q.Start[1]))
	v.Set("end_point_x", strconv.Itoa(q.End[0]))
	v.Set("end_point_y", strconv.Itoa(q.End[1]))
	v.Set("n_tracks", strconv.Itoa(q.NTracks))
	v.Set("min_steps_straight", strconv.Itoa(q.MinStepsStraight))
	v.Set("max_steps_straight", strconv.Itoa(q.MaxStepsStraight))
	return v
}

// Client queries the remote track service.
type Client struct {
	http    httputil.HTTPClient
	baseURL string
}

// NewClient builds a client on the given HTTP implementation. An empty
// baseURL selects the public service; a nil client uses the standard one.
func NewClient(h httputil.HTTPClient, baseURL string) *Client {
	if h == nil {
		h = httputil.NewStandardClient(nil)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: h, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch queries the service and returns the validated track set.
func (c *Client) Fetch(q QueryParams) (*track.TrackSet, error) {
	q = q.withDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u := c.baseURL + "/road-tracks/tracks/?" + q.values().Encode()
	resp, err := c.http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("track service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("track service returned status %d", resp.StatusCode)
	}
	ts, err := Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("track service response invalid: %w", err)
	}
	return ts, nil
}

// SaveFilename builds the canonical name for a saved track set:
// tracks_<datetime>_<n>_<sx>_<sy>_<ex>_<ey>.json with the datetime reduced to
// its alphanumeric characters.
func SaveFilename(ts *track.TrackSet) string {
	stamp := ts.Date.Format(TimeLayout)
	var b strings.Builder
	for _, r := range stamp {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("tracks_%s_%d_%d_%d_%d_%d.json",
		b.String(), len(ts.Tracks), ts.Start[0], ts.Start[1], ts.End[0], ts.End[1])
}

// Save writes ts into dir under its canonical filename and returns the path.
func Save(ts *track.TrackSet, dir string) (string, error) {
	path := filepath.Join(dir, SaveFilename(ts))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create track file: %w", err)
	}
	defer f.Close()
	if err := Encode(f, ts); err != nil {
		return "", fmt.Errorf("failed to write track file: %w", err)
	}
	return path, nil
}
