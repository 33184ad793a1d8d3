package trackdb

import (
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/route.report/internal/track"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tracks.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func sampleSet() *track.TrackSet {
	start := [2]int{2, 3}
	return &track.TrackSet{
		Start:   start,
		End:     [2]int{4, 2},
		MapSize: [2]int{5, 5},
		Date:    time.Date(2021, 12, 11, 21, 12, 20, 0, time.UTC),
		Tracks: []track.Track{
			{
				Start:     start,
				ChainCode: "11233344111",
				Road:      "llmmmmlrrrr",
				Terrain:   "pggppdddppg",
				Elevation: []int{17, 18, 19, 24, 23, 22, 21, 16, 11, 12, 13, 14},
			},
			{
				Start:     start,
				ChainCode: "141",
				Road:      "mlr",
				Terrain:   "ppg",
				Elevation: []int{17, 17, 18, 18},
			},
		},
	}
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("database reports dirty after clean migration")
	}
	if version != 2 {
		t.Errorf("migration version = %d, want 2", version)
	}
}

func TestSaveAndLoadTrackSet(t *testing.T) {
	db := openTestDB(t)
	want := sampleSet()

	id, err := db.SaveTrackSet(want, "test", track.DefaultScoringParams())
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}
	if id == "" {
		t.Fatal("SaveTrackSet returned empty id")
	}

	got, err := db.TrackSet(id)
	if err != nil {
		t.Fatalf("TrackSet failed: %v", err)
	}
	if !got.Date.Equal(want.Date) {
		t.Errorf("Date = %v, want %v", got.Date, want.Date)
	}
	if got.Start != want.Start || got.End != want.End || got.MapSize != want.MapSize {
		t.Errorf("geometry = %v/%v/%v, want %v/%v/%v",
			got.Start, got.End, got.MapSize, want.Start, want.End, want.MapSize)
	}
	if diff := cmp.Diff(want.Tracks, got.Tracks); diff != "" {
		t.Errorf("loaded tracks mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackSetUnknownID(t *testing.T) {
	db := openTestDB(t)

	_, err := db.TrackSet("no-such-set")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("TrackSet on unknown id returned %v, want sql.ErrNoRows", err)
	}
}

func TestSetScoresMatchTrackScoring(t *testing.T) {
	db := openTestDB(t)
	ts := sampleSet()
	params := track.DefaultScoringParams()

	id, err := db.SaveTrackSet(ts, "test", params)
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}

	scores, err := db.SetScores(id)
	if err != nil {
		t.Fatalf("SetScores failed: %v", err)
	}
	if len(scores) != len(ts.Tracks) {
		t.Fatalf("got %d score rows, want %d", len(scores), len(ts.Tracks))
	}
	for i, s := range scores {
		if s.Index != i {
			t.Errorf("score row %d has index %d", i, s.Index)
		}
		tr := &ts.Tracks[i]
		if math.Abs(s.CO2-tr.CO2(params)) > 1e-9 {
			t.Errorf("track %d cached co2 = %v, want %v", i, s.CO2, tr.CO2(params))
		}
		if math.Abs(s.Hours-tr.Time(params)) > 1e-9 {
			t.Errorf("track %d cached time = %v, want %v", i, s.Hours, tr.Time(params))
		}
		if math.Abs(s.Distance-tr.Distance()) > 1e-9 {
			t.Errorf("track %d cached distance = %v, want %v", i, s.Distance, tr.Distance())
		}
	}
}

func TestListTrackSets(t *testing.T) {
	db := openTestDB(t)
	ts := sampleSet()
	params := track.DefaultScoringParams()

	first, err := db.SaveTrackSet(ts, "remote", params)
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}
	second, err := db.SaveTrackSet(ts, "file", params)
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}

	sets, err := db.ListTrackSets()
	if err != nil {
		t.Fatalf("ListTrackSets failed: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("listed %d sets, want 2", len(sets))
	}
	ids := map[string]bool{sets[0].ID: true, sets[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("listed ids %v missing saved ids %s, %s", ids, first, second)
	}
	for _, m := range sets {
		if m.NTracks != len(ts.Tracks) {
			t.Errorf("set %s reports %d tracks, want %d", m.ID, m.NTracks, len(ts.Tracks))
		}
		if !m.QueriedAt.Equal(ts.Date) {
			t.Errorf("set %s queried at %v, want %v", m.ID, m.QueriedAt, ts.Date)
		}
	}
}

func TestListTrackSetsRejectsCorruptFetchTime(t *testing.T) {
	db := openTestDB(t)
	id, err := db.SaveTrackSet(sampleSet(), "test", track.DefaultScoringParams())
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}

	if _, err := db.Exec("UPDATE track_sets SET fetched_at = 'garbage' WHERE set_id = ?", id); err != nil {
		t.Fatalf("corrupting fetched_at failed: %v", err)
	}

	if _, err := db.ListTrackSets(); err == nil {
		t.Error("ListTrackSets returned nil error for unreadable fetched_at")
	}
}

func TestDeleteTrackSetCascades(t *testing.T) {
	db := openTestDB(t)
	id, err := db.SaveTrackSet(sampleSet(), "test", track.DefaultScoringParams())
	if err != nil {
		t.Fatalf("SaveTrackSet failed: %v", err)
	}

	if err := db.DeleteTrackSet(id); err != nil {
		t.Fatalf("DeleteTrackSet failed: %v", err)
	}

	if _, err := db.TrackSet(id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("TrackSet after delete returned %v, want sql.ErrNoRows", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM tracks WHERE set_id = ?", id).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if n != 0 {
		t.Errorf("%d track rows remain after cascade delete", n)
	}

	// Deleting an id that never existed is a no-op.
	if err := db.DeleteTrackSet("no-such-set"); err != nil {
		t.Errorf("DeleteTrackSet on unknown id returned %v", err)
	}
}
