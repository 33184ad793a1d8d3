package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/route.report/internal/track"
	"github.com/banshee-data/route.report/internal/trackdb"
	"github.com/banshee-data/route.report/internal/trackio"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	db, err := trackdb.Open(filepath.Join(t.TempDir(), "tracks.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	start := [2]int{2, 3}
	ts := &track.TrackSet{
		Start:   start,
		End:     [2]int{4, 2},
		MapSize: [2]int{5, 5},
		Date:    time.Date(2021, 12, 11, 21, 12, 20, 0, time.UTC),
		Tracks: []track.Track{
			{Start: start, ChainCode: "11233344111", Road: "llmmmmlrrrr", Terrain: "pggppdddppg",
				Elevation: []int{17, 18, 19, 24, 23, 22, 21, 16, 11, 12, 13, 14}},
			{Start: start, ChainCode: "14111", Road: "mlrrr", Terrain: "ppggg",
				Elevation: []int{17, 17, 18, 18, 19, 19}},
			{Start: start, ChainCode: "11141", Road: "rrrml", Terrain: "gggpp",
				Elevation: []int{17, 16, 15, 14, 14, 13}},
			{Start: start, ChainCode: "41111", Road: "lmrrr", Terrain: "pdddd",
				Elevation: []int{17, 18, 17, 16, 15, 14}},
		},
	}
	id, err := db.SaveTrackSet(ts, "test", track.DefaultScoringParams())
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}
	return NewServer(db, track.DefaultScoringParams()), id
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}

func TestListSets(t *testing.T) {
	s, id := testServer(t)

	w := get(t, s, "/api/sets")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/sets returned %d: %s", w.Code, w.Body.String())
	}

	var sets []struct {
		ID      string `json:"id"`
		NTracks int    `json:"n_tracks"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sets); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(sets) != 1 || sets[0].ID != id {
		t.Fatalf("listed sets = %+v, want single set %s", sets, id)
	}
	if sets[0].NTracks != 4 || sets[0].Source != "test" {
		t.Errorf("set meta = %+v", sets[0])
	}
}

func TestGetSet(t *testing.T) {
	s, id := testServer(t)

	w := get(t, s, "/api/sets/"+id)
	if w.Code != http.StatusOK {
		t.Fatalf("GET set returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID     string `json:"id"`
		Tracks []struct {
			ChainCode  string  `json:"cc"`
			CO2Kg      float64 `json:"co2_kg"`
			DistanceKm float64 `json:"distance_km"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID != id || len(resp.Tracks) != 4 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Tracks[0].ChainCode != "11233344111" {
		t.Errorf("track 0 chain code = %q", resp.Tracks[0].ChainCode)
	}
	for i, tr := range resp.Tracks {
		if tr.CO2Kg <= 0 || tr.DistanceKm <= 0 {
			t.Errorf("track %d has unset cached scores: %+v", i, tr)
		}
	}
}

func TestGetSetUnknownID(t *testing.T) {
	s, _ := testServer(t)

	if w := get(t, s, "/api/sets/no-such-set"); w.Code != http.StatusNotFound {
		t.Errorf("GET unknown set returned %d, want 404", w.Code)
	}
}

func TestClusterSet(t *testing.T) {
	s, id := testServer(t)

	w := get(t, s, "/api/sets/"+id+"/clusters?clusters=2&iters=5&engine=scalar&seed=1")
	if w.Code != http.StatusOK {
		t.Fatalf("GET clusters returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		NTracks  int     `json:"n_tracks"`
		Clusters [][]int `json:"clusters"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.NTracks != 4 || len(resp.Clusters) != 2 {
		t.Fatalf("response = %+v", resp)
	}

	seen := map[int]bool{}
	for _, group := range resp.Clusters {
		for _, idx := range group {
			if seen[idx] {
				t.Errorf("track %d appears in two clusters", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != 4 {
		t.Errorf("clusters cover %d tracks, want 4", len(seen))
	}
}

func TestClusterSetRejectsBadParams(t *testing.T) {
	s, id := testServer(t)

	cases := []struct {
		name  string
		query string
	}{
		{"too many clusters", "?clusters=99"},
		{"zero iterations", "?clusters=2&iters=0"},
		{"unknown engine", "?clusters=2&engine=quantum"},
		{"malformed clusters", "?clusters=two"},
		{"malformed seed", "?clusters=2&seed=x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, s, "/api/sets/"+id+"/clusters"+tc.query)
			if w.Code != http.StatusBadRequest {
				t.Errorf("returned %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestClusterChart(t *testing.T) {
	s, id := testServer(t)

	w := get(t, s, "/charts/sets/"+id+"/clusters?clusters=2&seed=1")
	if w.Code != http.StatusOK {
		t.Fatalf("GET chart returned %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "echarts") {
		t.Error("chart response does not embed echarts")
	}
}

// The replay endpoint must speak the upstream wire format, so a client
// built for the remote service can fetch stored sets from this server.
func TestReplayRoundTrip(t *testing.T) {
	s, id := testServer(t)
	srv := httptest.NewServer(s.ServeMux())
	defer srv.Close()

	client := trackio.NewClient(nil, srv.URL)
	got, err := client.Fetch(trackio.QueryParams{Start: [2]int{2, 3}, End: [2]int{4, 2}})
	if err != nil {
		t.Fatalf("Fetch from replay endpoint failed: %v", err)
	}
	if len(got.Tracks) != 4 {
		t.Errorf("fetched %d tracks, want 4", len(got.Tracks))
	}
	if got.Start != [2]int{2, 3} || got.End != [2]int{4, 2} {
		t.Errorf("geometry = %v/%v", got.Start, got.End)
	}

	// Selecting the set explicitly returns the same payload.
	resp, err := http.Get(srv.URL + "/road-tracks/tracks/?set_id=" + id)
	if err != nil {
		t.Fatalf("GET with set_id failed: %v", err)
	}
	defer resp.Body.Close()
	explicit, err := trackio.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decoding explicit set: %v", err)
	}
	if len(explicit.Tracks) != len(got.Tracks) {
		t.Errorf("explicit fetch returned %d tracks, want %d", len(explicit.Tracks), len(got.Tracks))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, id := testServer(t)

	for _, url := range []string{"/api/sets", "/api/sets/" + id, "/road-tracks/tracks/"} {
		req := httptest.NewRequest(http.MethodPost, url, nil)
		w := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s returned %d, want 405", url, w.Code)
		}
	}
}
