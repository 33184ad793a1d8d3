package trackio

import (
	"fmt"

	"github.com/banshee-data/route.report/internal/track"
)

// MaxMapSize is the largest supported map edge. Start and end coordinates are
// therefore limited to 0..MaxMapSize-1.
const MaxMapSize = 300

// ValidateTrack checks a single track's codes and lengths: chain code digits
// 1-4, road codes in rlm, terrain codes in pgd, and one more elevation sample
// than moves.
func ValidateTrack(cc, road, terrain string, elevation []int) error {
	if len(cc)+1 != len(elevation) || len(cc) != len(road) || len(cc) != len(terrain) {
		return fmt.Errorf("chain code, road and terrain must have equal length, one less than elevation (cc=%d road=%d terrain=%d elevation=%d)",
			len(cc), len(road), len(terrain), len(elevation))
	}
	for i := 0; i < len(cc); i++ {
		if cc[i] < '1' || cc[i] > '4' {
			return fmt.Errorf("chain code must consist of digits 1-4, found %q", string(cc[i]))
		}
	}
	for i := 0; i < len(road); i++ {
		if !validRoad(track.Road(road[i])) {
			return fmt.Errorf("road type must consist of characters r, l or m, found %q", string(road[i]))
		}
	}
	for i := 0; i < len(terrain); i++ {
		if !validTerrain(track.Terrain(terrain[i])) {
			return fmt.Errorf("terrain must consist of characters p, g or d, found %q", string(terrain[i]))
		}
	}
	return nil
}

func validRoad(r track.Road) bool {
	for _, known := range track.Roads {
		if r == known {
			return true
		}
	}
	return false
}

func validTerrain(t track.Terrain) bool {
	for _, known := range track.Terrains {
		if t == known {
			return true
		}
	}
	return false
}

// coordinate converts a metadata coordinate array, requiring exactly two
// non-negative components.
func coordinate(name string, v []int) ([2]int, error) {
	if v == nil {
		return [2]int{}, fmt.Errorf("missing metadata key %q", name)
	}
	if len(v) != 2 {
		return [2]int{}, fmt.Errorf("coordinate %q must be 2-D, got %d components", name, len(v))
	}
	if v[0] < 0 || v[1] < 0 {
		return [2]int{}, fmt.Errorf("coordinate %q must be non-negative, got (%d, %d)", name, v[0], v[1])
	}
	return [2]int{v[0], v[1]}, nil
}

// validateGeometry enforces the map bounds: maps are at most
// MaxMapSize x MaxMapSize and both endpoints must lie on the map.
func validateGeometry(start, end, mapSize [2]int) error {
	if mapSize[0] > MaxMapSize || mapSize[1] > MaxMapSize {
		return fmt.Errorf("maximum map size is %d x %d, got (%d, %d)", MaxMapSize, MaxMapSize, mapSize[0], mapSize[1])
	}
	for _, c := range []struct {
		name string
		v    [2]int
	}{{"start", start}, {"end", end}} {
		if c.v[0] >= MaxMapSize || c.v[1] >= MaxMapSize {
			return fmt.Errorf("coordinate %q (%d, %d) is outside the maximum map size", c.name, c.v[0], c.v[1])
		}
		if c.v[0] > mapSize[0] || c.v[1] > mapSize[1] {
			return fmt.Errorf("coordinate %q (%d, %d) is outside the map (%d, %d)", c.name, c.v[0], c.v[1], mapSize[0], mapSize[1])
		}
	}
	return nil
}
