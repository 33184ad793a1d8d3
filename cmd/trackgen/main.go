// Command trackgen generates a synthetic track-set JSON file for testing
// the loader, scorer and clustering pipeline without the remote service.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/route.report/internal/track"
	"github.com/banshee-data/route.report/internal/trackio"
)

func main() {
	output := flag.String("o", "tracks.json", "output path")
	n := flag.Int("n", 20, "number of tracks")
	start := flag.String("start", "2,3", "start coordinate x,y")
	end := flag.String("end", "20,15", "end coordinate x,y")
	mapSize := flag.String("map", "30,30", "map size x,y")
	seed := flag.Int64("seed", 0, "random seed (0 means time-based)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	ts := &track.TrackSet{Date: time.Now()}
	var err error
	if ts.Start, err = parseCoord(*start); err != nil {
		log.Fatalf("invalid start: %v", err)
	}
	if ts.End, err = parseCoord(*end); err != nil {
		log.Fatalf("invalid end: %v", err)
	}
	if ts.MapSize, err = parseCoord(*mapSize); err != nil {
		log.Fatalf("invalid map size: %v", err)
	}

	for i := 0; i < *n; i++ {
		ts.Tracks = append(ts.Tracks, generateTrack(rng, ts.Start, ts.End))
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()
	if err := trackio.Encode(f, ts); err != nil {
		log.Fatalf("failed to encode track set: %v", err)
	}
	log.Printf("Created %s with %d tracks (seed %d)", *output, *n, *seed)
}

// generateTrack builds a random monotone path from start to end: the
// required east/west and north/south moves in shuffled order, so the path
// never leaves the bounding box of the two points.
func generateTrack(rng *rand.Rand, start, end [2]int) track.Track {
	var moves []byte
	appendRun := func(dir byte, count int) {
		for i := 0; i < count; i++ {
			moves = append(moves, dir)
		}
	}
	if end[0] >= start[0] {
		appendRun('1', end[0]-start[0])
	} else {
		appendRun('3', start[0]-end[0])
	}
	if end[1] >= start[1] {
		appendRun('2', end[1]-start[1])
	} else {
		appendRun('4', start[1]-end[1])
	}
	rng.Shuffle(len(moves), func(i, j int) {
		moves[i], moves[j] = moves[j], moves[i]
	})

	roads := make([]byte, len(moves))
	terrains := make([]byte, len(moves))
	for i := range moves {
		roads[i] = byte(track.Roads[rng.Intn(len(track.Roads))])
		terrains[i] = byte(track.Terrains[rng.Intn(len(track.Terrains))])
	}

	elevation := make([]int, len(moves)+1)
	elevation[0] = 15 + rng.Intn(10)
	for i := 1; i < len(elevation); i++ {
		elevation[i] = elevation[i-1] + rng.Intn(7) - 3
		if elevation[i] < 0 {
			elevation[i] = 0
		}
	}

	return track.Track{
		Start:     start,
		ChainCode: string(moves),
		Road:      string(roads),
		Terrain:   string(terrains),
		Elevation: elevation,
	}
}

func parseCoord(s string) ([2]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("coordinate %q is not of the form x,y", s)
	}
	var c [2]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return [2]int{}, fmt.Errorf("coordinate %q is not of the form x,y", s)
		}
		c[i] = v
	}
	return c, nil
}
