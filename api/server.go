// Package api serves stored track sets over HTTP: a JSON API for listing
// sets and clustering their tracks, a replay endpoint that mimics the
// upstream track service's wire format, and rendered cluster charts.
package api

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/route.report/internal/chart"
	"github.com/banshee-data/route.report/internal/cluster"
	"github.com/banshee-data/route.report/internal/httputil"
	"github.com/banshee-data/route.report/internal/track"
	"github.com/banshee-data/route.report/internal/trackdb"
	"github.com/banshee-data/route.report/internal/trackio"
)

type Server struct {
	db     *trackdb.DB
	params track.ScoringParams
}

func NewServer(db *trackdb.DB, params track.ScoringParams) *Server {
	return &Server{
		db:     db,
		params: params,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Route Report Server!"))
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/road-tracks/tracks/", s.replayTracks)
	mux.HandleFunc("/api/sets", s.listSets)
	mux.HandleFunc("/api/sets/", s.setRoutes)
	mux.HandleFunc("/charts/sets/", s.clusterChart)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

// replayTracks serves a stored set in the upstream wire format so that a
// trackio.Client pointed at this server works unchanged. The set_id query
// parameter selects a set; without it the most recently fetched set is used.
func (s *Server) replayTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("set_id")
	if id == "" {
		sets, err := s.db.ListTrackSets()
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to list sets: %v", err))
			return
		}
		if len(sets) == 0 {
			httputil.NotFound(w, "no stored track sets")
			return
		}
		id = sets[0].ID
	}

	ts := s.loadSet(w, id)
	if ts == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := trackio.Encode(w, ts); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode set: %v", err))
	}
}

func (s *Server) listSets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sets, err := s.db.ListTrackSets()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sets: %v", err))
		return
	}

	type setResponse struct {
		ID        string `json:"id"`
		QueriedAt string `json:"queried_at"`
		Start     [2]int `json:"start"`
		End       [2]int `json:"end"`
		MapSize   [2]int `json:"map_size"`
		NTracks   int    `json:"n_tracks"`
		Source    string `json:"source"`
	}
	resp := make([]setResponse, len(sets))
	for i, m := range sets {
		resp[i] = setResponse{
			ID:        m.ID,
			QueriedAt: m.QueriedAt.Format(trackio.TimeLayout),
			Start:     m.Start,
			End:       m.End,
			MapSize:   m.MapSize,
			NTracks:   m.NTracks,
			Source:    m.Source,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// setRoutes dispatches /api/sets/{id} and /api/sets/{id}/clusters.
func (s *Server) setRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sets/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.getSet(w, parts[0])
	case len(parts) == 2 && parts[1] == "clusters":
		s.clusterSet(w, r, parts[0])
	default:
		httputil.NotFound(w, "unknown route")
	}
}

func (s *Server) getSet(w http.ResponseWriter, id string) {
	ts := s.loadSet(w, id)
	if ts == nil {
		return
	}
	scores, err := s.db.SetScores(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load scores: %v", err))
		return
	}

	type trackResponse struct {
		ChainCode  string  `json:"cc"`
		Road       string  `json:"road"`
		Terrain    string  `json:"terrain"`
		Elevation  []int   `json:"elevation"`
		CO2Kg      float64 `json:"co2_kg"`
		TimeHours  float64 `json:"time_hours"`
		DistanceKm float64 `json:"distance_km"`
	}
	resp := struct {
		ID        string          `json:"id"`
		QueriedAt string          `json:"queried_at"`
		Start     [2]int          `json:"start"`
		End       [2]int          `json:"end"`
		MapSize   [2]int          `json:"map_size"`
		Tracks    []trackResponse `json:"tracks"`
	}{
		ID:        id,
		QueriedAt: ts.Date.Format(trackio.TimeLayout),
		Start:     ts.Start,
		End:       ts.End,
		MapSize:   ts.MapSize,
		Tracks:    make([]trackResponse, len(ts.Tracks)),
	}
	for i, t := range ts.Tracks {
		resp.Tracks[i] = trackResponse{
			ChainCode: t.ChainCode,
			Road:      t.Road,
			Terrain:   t.Terrain,
			Elevation: t.Elevation,
		}
	}
	// Scores are cached at save time; align them by index.
	for _, sc := range scores {
		if sc.Index >= 0 && sc.Index < len(resp.Tracks) {
			resp.Tracks[sc.Index].CO2Kg = sc.CO2
			resp.Tracks[sc.Index].TimeHours = sc.Hours
			resp.Tracks[sc.Index].DistanceKm = sc.Distance
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) clusterSet(w http.ResponseWriter, r *http.Request, id string) {
	ts, groups, ok := s.clusterStoredSet(w, r, id)
	if !ok {
		return
	}

	resp := struct {
		ID       string  `json:"id"`
		NTracks  int     `json:"n_tracks"`
		Clusters [][]int `json:"clusters"`
	}{
		ID:       id,
		NTracks:  len(ts.Tracks),
		Clusters: groups,
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// clusterChart renders /charts/sets/{id}/clusters as an ECharts HTML page.
func (s *Server) clusterChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/charts/sets/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "clusters" {
		httputil.NotFound(w, "unknown route")
		return
	}

	ts, groups, ok := s.clusterStoredSet(w, r, parts[0])
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.ClusterScatterHTML(ts.FeaturePoints(s.params), groups, w); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
	}
}

// clusterStoredSet loads a set and clusters its tracks according to the
// clusters, iters, engine and seed query parameters. It writes the error
// response itself and reports ok=false when anything fails.
func (s *Server) clusterStoredSet(w http.ResponseWriter, r *http.Request, id string) (*track.TrackSet, [][]int, bool) {
	ts := s.loadSet(w, id)
	if ts == nil {
		return nil, nil, false
	}

	cfg := cluster.Config{Clusters: 3, Iterations: cluster.DefaultIterations}
	q := r.URL.Query()
	var err error
	if v := q.Get("clusters"); v != "" {
		if cfg.Clusters, err = strconv.Atoi(v); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid clusters parameter %q", v))
			return nil, nil, false
		}
	}
	if v := q.Get("iters"); v != "" {
		if cfg.Iterations, err = strconv.Atoi(v); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid iters parameter %q", v))
			return nil, nil, false
		}
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid seed parameter %q", v))
			return nil, nil, false
		}
		cfg.Rand = rand.New(rand.NewSource(seed))
	}

	engine := q.Get("engine")
	if engine == "" {
		engine = "matrix"
	}
	c, err := cluster.NewNamed(engine, cfg)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, nil, false
	}

	groups, err := ts.ClusterTracks(c, s.params)
	if err != nil {
		var invalid *cluster.InvalidConfigurationError
		if errors.As(err, &invalid) {
			httputil.BadRequest(w, err.Error())
		} else {
			httputil.InternalServerError(w, fmt.Sprintf("clustering failed: %v", err))
		}
		return nil, nil, false
	}
	return ts, groups, true
}

// loadSet fetches a stored set, writing the error response and returning
// nil on failure.
func (s *Server) loadSet(w http.ResponseWriter, id string) *track.TrackSet {
	ts, err := s.db.TrackSet(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, fmt.Sprintf("no track set %q", id))
		} else {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load set: %v", err))
		}
		return nil
	}
	return ts
}
