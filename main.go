// route-report analyses road tracks fetched from the track generation
// service: scoring routes for CO2, journey time and distance, clustering
// whole track sets, and serving stored sets back out over HTTP.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/route.report/api"
	"github.com/banshee-data/route.report/internal/chart"
	"github.com/banshee-data/route.report/internal/cluster"
	"github.com/banshee-data/route.report/internal/config"
	"github.com/banshee-data/route.report/internal/track"
	"github.com/banshee-data/route.report/internal/trackdb"
	"github.com/banshee-data/route.report/internal/trackio"
	"github.com/banshee-data/route.report/internal/version"
)

const dbFile = "tracks.db"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "route":
		runRoute(os.Args[2:])
	case "fetch":
		runFetch(os.Args[2:])
	case "cluster":
		runCluster(os.Args[2:])
	case "chart":
		runChart(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		dbPath := fs.String("db", dbFile, "Path to the sqlite database")
		fs.Parse(os.Args[2:])
		trackdb.RunMigrateCommand(fs.Args(), *dbPath)
	case "version":
		fmt.Printf("route-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: route-report <command> [flags]

Commands:
  route    Pick the greenest, fastest or shortest track between two points
  fetch    Fetch a track set from the remote service and store it
  cluster  Cluster points from a CSV file and print a summary
  chart    Render a track as a PNG
  serve    Serve stored track sets over HTTP
  migrate  Manage the database schema
  version  Print the build version

Run 'route-report <command> -h' for command flags.`)
}

// parseCoord parses an "x,y" grid coordinate.
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

func runRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	file := fs.String("file", "", "Read tracks from a JSON file instead of the remote service")
	start := fs.String("start", "0,0", "Start coordinate x,y")
	end := fs.String("end", "299,299", "End coordinate x,y")
	criterion := fs.String("criterion", "greenest", "Selection criterion: greenest, fastest or shortest")
	verbose := fs.Bool("verbose", false, "Print a turn-by-turn description of the route")
	paramsFile := fs.String("params", "", "JSON file overriding the consumption model")
	fs.Parse(args)

	var ts *track.TrackSet
	var err error
	if *file != "" {
		ts, err = trackio.Load(*file)
	} else {
		var q trackio.QueryParams
		if q.Start, err = parseCoord(*start); err != nil {
			log.Fatalf("Invalid start: %v", err)
		}
		if q.End, err = parseCoord(*end); err != nil {
			log.Fatalf("Invalid end: %v", err)
		}
		q.NTracks = 50
		ts, err = trackio.NewClient(nil, "").Fetch(q)
	}
	if err != nil {
		log.Fatalf("Failed to load tracks: %v", err)
	}

	params, err := config.LoadScoringParams(*paramsFile)
	if err != nil {
		log.Fatalf("Failed to load scoring params: %v", err)
	}
	var best *track.Track
	switch *criterion {
	case "greenest":
		best, err = ts.Greenest(params)
	case "fastest":
		best, err = ts.Fastest(params)
	case "shortest":
		best, err = ts.Shortest()
	default:
		log.Fatalf("Unknown criterion %q (want greenest, fastest or shortest)", *criterion)
	}
	if err != nil {
		log.Fatalf("Failed to select a track: %v", err)
	}

	printRoute(os.Stdout, best, params, *verbose)
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	start := fs.String("start", "0,0", "Start coordinate x,y")
	end := fs.String("end", "299,299", "End coordinate x,y")
	n := fs.Int("n", trackio.DefaultTrackCount, "Number of tracks to request")
	minStraight := fs.Int("min", 1, "Minimum straight-run length")
	maxStraight := fs.Int("max", 0, "Maximum straight-run length (0 means min+5)")
	saveDir := fs.String("save", "", "Directory to save the fetched set as JSON (empty to skip)")
	dbPath := fs.String("db", dbFile, "Path to the sqlite database (empty to skip storing)")
	baseURL := fs.String("url", trackio.DefaultBaseURL, "Track service base URL")
	paramsFile := fs.String("params", "", "JSON file overriding the consumption model")
	fs.Parse(args)

	var q trackio.QueryParams
	var err error
	if q.Start, err = parseCoord(*start); err != nil {
		log.Fatalf("Invalid start: %v", err)
	}
	if q.End, err = parseCoord(*end); err != nil {
		log.Fatalf("Invalid end: %v", err)
	}
	q.NTracks = *n
	q.MinStepsStraight = *minStraight
	q.MaxStepsStraight = *maxStraight

	ts, err := trackio.NewClient(nil, *baseURL).Fetch(q)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}
	log.Printf("Fetched %d tracks from (%d, %d) to (%d, %d)",
		len(ts.Tracks), ts.Start[0], ts.Start[1], ts.End[0], ts.End[1])

	if *saveDir != "" {
		path, err := trackio.Save(ts, *saveDir)
		if err != nil {
			log.Fatalf("Failed to save track set: %v", err)
		}
		log.Printf("Saved to %s", path)
	}

	if *dbPath != "" {
		params, err := config.LoadScoringParams(*paramsFile)
		if err != nil {
			log.Fatalf("Failed to load scoring params: %v", err)
		}
		db, err := trackdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		id, err := db.SaveTrackSet(ts, *baseURL, params)
		if err != nil {
			log.Fatalf("Failed to store track set: %v", err)
		}
		log.Printf("Stored as set %s", id)
	}
}

func runCluster(args []string) {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	file := fs.String("points", "", "CSV file of points, one point per row")
	clusters := fs.Int("clusters", 3, "Number of clusters")
	iters := fs.Int("iters", cluster.DefaultIterations, "Number of refinement passes")
	engine := fs.String("engine", "matrix", "Clustering engine: scalar or matrix")
	seed := fs.Int64("seed", 0, "Random seed (0 means time-based)")
	fs.Parse(args)

	if *file == "" {
		log.Fatal("cluster requires -points")
	}
	points, err := loadPointsCSV(*file)
	if err != nil {
		log.Fatalf("Failed to read points: %v", err)
	}
	ps, err := cluster.NewPointSet(points)
	if err != nil {
		log.Fatalf("Invalid points: %v", err)
	}

	cfg := cluster.Config{Clusters: *clusters, Iterations: *iters}
	if *seed != 0 {
		cfg.Rand = rand.New(rand.NewSource(*seed))
	}
	c, err := cluster.NewNamed(*engine, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	res, err := c.Cluster(ps)
	if err != nil {
		log.Fatalf("Clustering failed: %v", err)
	}
	if err := res.WriteSummary(os.Stdout); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}
}

// loadPointsCSV reads one point per row, all rows the same width.
func loadPointsCSV(path string) ([]cluster.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	points := make([]cluster.Point, 0, len(rows))
	for i, row := range rows {
		p := make(cluster.Point, len(row))
		for j, field := range row {
			if p[j], err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
		}
		points = append(points, p)
	}
	return points, nil
}

func runChart(args []string) {
	fs := flag.NewFlagSet("chart", flag.ExitOnError)
	file := fs.String("file", "", "JSON file holding the track set")
	index := fs.Int("track", 0, "Index of the track to plot")
	out := fs.String("out", chart.DefaultTrackFile, "Output PNG path")
	kind := fs.String("kind", "elevation", "Plot kind: elevation or path")
	fs.Parse(args)

	if *file == "" {
		log.Fatal("chart requires -file")
	}
	ts, err := trackio.Load(*file)
	if err != nil {
		log.Fatalf("Failed to load tracks: %v", err)
	}
	t, err := ts.Get(*index)
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch *kind {
	case "elevation":
		err = chart.SaveTrackPNG(t, *out)
	case "path":
		err = chart.SavePathPNG(t, *out)
	default:
		log.Fatalf("Unknown plot kind %q (want elevation or path)", *kind)
	}
	if err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}
	log.Printf("Wrote %s", *out)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", dbFile, "Path to the sqlite database")
	paramsFile := fs.String("params", "", "JSON file overriding the consumption model")
	fs.Parse(args)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	params, err := config.LoadScoringParams(*paramsFile)
	if err != nil {
		log.Fatalf("Failed to load scoring params: %v", err)
	}

	db, err := trackdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := api.NewServer(db, params).ServeMux()

	// mount the admin debugging routes
	db.AttachAdminRoutes(mux)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr:    *listen,
		Handler: h,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("Listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
