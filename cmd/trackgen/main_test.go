package main

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/route.report/internal/trackio"
)

func TestGenerateTrackIsValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start, end := [2]int{2, 3}, [2]int{20, 15}

	for i := 0; i < 50; i++ {
		tr := generateTrack(rng, start, end)
		if err := trackio.ValidateTrack(tr.ChainCode, tr.Road, tr.Terrain, tr.Elevation); err != nil {
			t.Fatalf("generated track %d is invalid: %v", i, err)
		}
		path := tr.Path()
		if got := path[len(path)-1]; got != end {
			t.Errorf("track %d ends at %v, want %v", i, got, end)
		}
	}
}

func TestGenerateTrackWestSouth(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	start, end := [2]int{20, 15}, [2]int{2, 3}

	tr := generateTrack(rng, start, end)
	if err := trackio.ValidateTrack(tr.ChainCode, tr.Road, tr.Terrain, tr.Elevation); err != nil {
		t.Fatalf("generated track is invalid: %v", err)
	}
	path := tr.Path()
	if got := path[len(path)-1]; got != end {
		t.Errorf("track ends at %v, want %v", got, end)
	}
}
