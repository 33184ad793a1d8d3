package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/route.report/internal/track"
)

// leg is one straight run between two consecutive corners.
type leg struct {
	direction string // east, north, west or south
	distance  int    // km
	turn      string // left, right, up or down; empty on the last leg
}

// legs breaks a corner sequence into straight runs. Turns are map-relative:
// a north or south run ends turning left (x decreasing) or right
// (x increasing), an east or west run ends turning down (y decreasing) or
// up (y increasing).
func legs(corners [][2]int) []leg {
	out := make([]leg, 0, len(corners)-1)
	for i := 1; i < len(corners); i++ {
		prev, cur := corners[i-1], corners[i]
		l := leg{distance: abs(cur[0]-prev[0]) + abs(cur[1]-prev[1])}
		switch {
		case cur[1] < prev[1]:
			l.direction = "south"
		case cur[1] > prev[1]:
			l.direction = "north"
		case cur[0] > prev[0]:
			l.direction = "east"
		default:
			l.direction = "west"
		}

		if i < len(corners)-1 {
			next := corners[i+1]
			if l.direction == "north" || l.direction == "south" {
				if next[0] < cur[0] {
					l.turn = "left"
				} else {
					l.turn = "right"
				}
			} else {
				if next[1] < cur[1] {
					l.turn = "down"
				} else {
					l.turn = "up"
				}
			}
		}
		out = append(out, l)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func formatCorner(c [2]int) string {
	return fmt.Sprintf("(%d, %d)", c[0], c[1])
}

func formatCorners(corners [][2]int) string {
	parts := make([]string, len(corners))
	for i, c := range corners {
		parts[i] = formatCorner(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatHours renders a duration in hours as h:mm:ss, rounded to the
// nearest second.
func formatHours(hours float64) string {
	total := int(math.Round(hours * 3600))
	return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
}

// formatCO2 renders kilograms of CO2 rounded to two decimal places,
// without trailing zeros.
func formatCO2(co2 float64) string {
	return strconv.FormatFloat(math.Round(co2*100)/100, 'f', -1, 64)
}

// printRoute reports the chosen track: its corner list, CO2 cost and
// journey time, or a turn-by-turn description when verbose is set.
func printRoute(w io.Writer, t *track.Track, p track.ScoringParams, verbose bool) {
	corners := t.Corners()

	if verbose {
		fmt.Fprintf(w, "Path:\n- Start from %s\n", formatCorner(corners[0]))
		for i, l := range legs(corners) {
			if l.turn != "" {
				fmt.Fprintf(w, "- Go %s for %d km, turn %s at %s\n",
					l.direction, l.distance, l.turn, formatCorner(corners[i+1]))
			} else {
				fmt.Fprintf(w, "- Go %s for %d km,\n- reach your destination at %s\n",
					l.direction, l.distance, formatCorner(corners[i+1]))
			}
		}
	} else {
		fmt.Fprintf(w, "Path: %s\n", formatCorners(corners))
	}
	fmt.Fprintf(w, "CO2: %s kg\n", formatCO2(t.CO2(p)))
	fmt.Fprintf(w, "Time: %s\n", formatHours(t.Time(p)))
}
