// Package trackdb stores fetched track sets in a local sqlite database so
// that scoring and clustering can be re-run without hitting the remote
// service again. Per-track CO2, time and distance scores are computed once
// at save time and cached alongside the raw track data.
package trackdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/route.report/internal/track"
)

type DB struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path. The schema is
// managed by migrations, so callers should run MigrateUp before first use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enforce referential integrity between tracks and their set.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// SetMeta describes a stored track set without its track payload.
type SetMeta struct {
	ID        string
	FetchedAt time.Time
	QueriedAt time.Time
	Start     [2]int
	End       [2]int
	MapSize   [2]int
	NTracks   int
	Source    string
}

func (m *SetMeta) String() string {
	return fmt.Sprintf("Set %s: %d tracks from (%d, %d) to (%d, %d), queried at %s",
		m.ID, m.NTracks, m.Start[0], m.Start[1], m.End[0], m.End[1],
		m.QueriedAt.Format(time.RFC3339))
}

// SaveTrackSet stores a track set and its tracks, scoring each track with
// the supplied parameters. It returns the generated set id.
func (db *DB) SaveTrackSet(ts *track.TrackSet, source string, params track.ScoringParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("cannot score tracks for storage: %w", err)
	}

	id := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO track_sets
		(set_id, queried_at, start_x, start_y, end_x, end_y, map_x, map_y, n_tracks, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ts.Date.UTC().Format(time.RFC3339),
		ts.Start[0], ts.Start[1], ts.End[0], ts.End[1],
		ts.MapSize[0], ts.MapSize[1], len(ts.Tracks), source)
	if err != nil {
		return "", fmt.Errorf("insert track set: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tracks
		(set_id, track_idx, chain_code, road, terrain, elevation, co2_kg, time_hours, distance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, t := range ts.Tracks {
		elevation, err := json.Marshal(t.Elevation)
		if err != nil {
			return "", fmt.Errorf("encode elevation for track %d: %w", i, err)
		}
		if _, err := stmt.Exec(id, i, t.ChainCode, t.Road, t.Terrain,
			string(elevation), t.CO2(params), t.Time(params), t.Distance()); err != nil {
			return "", fmt.Errorf("insert track %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListTrackSets returns metadata for every stored set, newest first.
func (db *DB) ListTrackSets() ([]SetMeta, error) {
	rows, err := db.Query(`SELECT set_id, fetched_at, queried_at,
		start_x, start_y, end_x, end_y, map_x, map_y, n_tracks, source
		FROM track_sets ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []SetMeta
	for rows.Next() {
		var m SetMeta
		var fetched, queried string
		if err := rows.Scan(&m.ID, &fetched, &queried,
			&m.Start[0], &m.Start[1], &m.End[0], &m.End[1],
			&m.MapSize[0], &m.MapSize[1], &m.NTracks, &m.Source); err != nil {
			return nil, err
		}
		if m.FetchedAt, err = parseStoredTime(fetched); err != nil {
			return nil, fmt.Errorf("set %s has unreadable fetch time %q: %w", m.ID, fetched, err)
		}
		if m.QueriedAt, err = parseStoredTime(queried); err != nil {
			return nil, fmt.Errorf("set %s has unreadable query time %q: %w", m.ID, queried, err)
		}
		sets = append(sets, m)
	}
	return sets, rows.Err()
}

// TrackSet reconstructs a stored set by id. It returns sql.ErrNoRows when
// the id is unknown.
func (db *DB) TrackSet(id string) (*track.TrackSet, error) {
	ts := &track.TrackSet{}
	var queried string
	err := db.QueryRow(`SELECT queried_at, start_x, start_y, end_x, end_y, map_x, map_y
		FROM track_sets WHERE set_id = ?`, id).Scan(
		&queried, &ts.Start[0], &ts.Start[1], &ts.End[0], &ts.End[1],
		&ts.MapSize[0], &ts.MapSize[1])
	if err != nil {
		return nil, err
	}
	if ts.Date, err = parseStoredTime(queried); err != nil {
		return nil, fmt.Errorf("set %s has unreadable query time %q: %w", id, queried, err)
	}

	rows, err := db.Query(`SELECT chain_code, road, terrain, elevation
		FROM tracks WHERE set_id = ? ORDER BY track_idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t := track.Track{Start: ts.Start}
		var elevation string
		if err := rows.Scan(&t.ChainCode, &t.Road, &t.Terrain, &elevation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(elevation), &t.Elevation); err != nil {
			return nil, fmt.Errorf("decode elevation in set %s: %w", id, err)
		}
		ts.Tracks = append(ts.Tracks, t)
	}
	return ts, rows.Err()
}

// TrackScores returns the cached per-track scores for a set, ordered by
// track index. The columns line up with track.FeaturePoints.
type TrackScores struct {
	Index    int
	CO2      float64
	Hours    float64
	Distance float64
}

func (db *DB) SetScores(id string) ([]TrackScores, error) {
	rows, err := db.Query(`SELECT track_idx, co2_kg, time_hours, distance_km
		FROM tracks WHERE set_id = ? ORDER BY track_idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []TrackScores
	for rows.Next() {
		var s TrackScores
		if err := rows.Scan(&s.Index, &s.CO2, &s.Hours, &s.Distance); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// DeleteTrackSet removes a set and, through the foreign key cascade, its
// tracks. Deleting an unknown id is not an error.
func (db *DB) DeleteTrackSet(id string) error {
	_, err := db.Exec("DELETE FROM track_sets WHERE set_id = ?", id)
	return err
}

// parseStoredTime accepts both the RFC3339 strings we write and the
// "YYYY-MM-DD HH:MM:SS" form sqlite's CURRENT_TIMESTAMP produces.
func parseStoredTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
