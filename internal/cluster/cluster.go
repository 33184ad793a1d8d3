// Package cluster implements iterative centroid (k-means) clustering over
// arbitrary-dimension feature vectors.
//
// Two conformant implementations are provided behind the Clusterer interface:
// Lloyd, a scalar reference, and Matrix, a vectorized implementation built on
// gonum matrices. For identical inputs and identical seeds both produce the
// same assignments and centroids within floating-point rounding.
//
// The refinement loop always runs the full iteration budget; there is no
// convergence early-exit. A cluster that receives no members keeps its
// previous centroid for the rest of the run. This matches the reference
// algorithm and bounds worst-case runtime deterministically, at the cost of a
// cluster being able to stay empty and stale once it loses all its points.
package cluster

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// DefaultIterations is the conventional refinement pass budget. The engine
// itself rejects a non-positive Iterations; callers that want the default
// apply it at their own boundary (CLI flags, the track module).
const DefaultIterations = 10

// Point is a single feature vector. Points are read-only to the engine; the
// caller retains ownership.
type Point []float64

// PointSet is an ordered sequence of equal-dimension points. Construct one
// with NewPointSet so the dimension invariant is checked exactly once, before
// any distance is computed.
type PointSet struct {
	points []Point
	dim    int
}

// NewPointSet validates that every point has the dimension of the first one
// and returns the wrapped set. An empty input is a valid (empty) set.
func NewPointSet(points []Point) (PointSet, error) {
	ps := PointSet{points: points}
	if len(points) == 0 {
		return ps, nil
	}
	ps.dim = len(points[0])
	for i, p := range points {
		if len(p) != ps.dim {
			return PointSet{}, &DimensionMismatchError{Expected: ps.dim, Actual: len(p), Index: i}
		}
	}
	return ps, nil
}

// Len returns the number of points in the set.
func (ps PointSet) Len() int { return len(ps.points) }

// Dim returns the shared dimension of the points, or 0 for an empty set.
func (ps PointSet) Dim() int { return ps.dim }

// At returns the i-th point.
func (ps PointSet) At(i int) Point { return ps.points[i] }

// Config holds the parameters of a clustering run.
type Config struct {
	// Clusters is K, the number of clusters to form.
	Clusters int

	// Iterations is M, the fixed number of assignment/update passes.
	// Must be positive; see DefaultIterations.
	Iterations int

	// Rand supplies the randomness for centroid seeding. Runs with the same
	// source state pick identical initial centroids, which is what the parity
	// and scenario tests rely on. Nil falls back to the global source.
	Rand *rand.Rand
}

// validate applies the fail-fast configuration checks shared by both
// implementations. It must run before any centroid is chosen.
func (c Config) validate(n int) error {
	if c.Clusters <= 0 {
		return &InvalidConfigurationError{Reason: fmt.Sprintf("cluster count must be positive, got %d", c.Clusters)}
	}
	if c.Iterations <= 0 {
		return &InvalidConfigurationError{Reason: fmt.Sprintf("iteration count must be positive, got %d", c.Iterations)}
	}
	if c.Clusters > n {
		return &InvalidConfigurationError{Reason: fmt.Sprintf("cluster count %d exceeds point count %d", c.Clusters, n)}
	}
	return nil
}

// seedIndices draws K distinct point indices without replacement. Both
// implementations call this with the same source so identical seeds yield
// identical initial centroids.
func (c Config) seedIndices(n int) []int {
	var perm []int
	if c.Rand != nil {
		perm = c.Rand.Perm(n)
	} else {
		perm = rand.Perm(n)
	}
	return perm[:c.Clusters]
}

// Cluster holds the final centroid and members of one cluster. Members appear
// in input order.
type Cluster struct {
	Center  Point   `json:"center"`
	Members []Point `json:"members"`
}

// Result maps cluster id (the slice index) to its final centroid and members.
type Result []Cluster

// WriteSummary emits the human-readable form of the result: one header line
// per cluster followed by its member list.
func (r Result) WriteSummary(w io.Writer) error {
	for id, c := range r {
		if _, err := fmt.Fprintf(w, "Cluster %d is centred at %s and has %d points.\n", id, c.Center.format(), len(c.Members)); err != nil {
			return err
		}
		members := make([]string, len(c.Members))
		for i, m := range c.Members {
			members[i] = m.format()
		}
		if _, err := fmt.Fprintf(w, "[%s]\n", strings.Join(members, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func (p Point) format() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Clusterer groups a point set into Config.Clusters clusters. Implementations
// are safe for concurrent use across calls as long as each call gets its own
// random source.
type Clusterer interface {
	Cluster(ps PointSet) (Result, error)
}

// NewNamed returns the implementation registered under name: "scalar" for
// the loop-based clusterer, "matrix" for the dense-algebra one.
func NewNamed(name string, cfg Config) (Clusterer, error) {
	switch name {
	case "scalar":
		return NewLloyd(cfg), nil
	case "matrix":
		return NewMatrix(cfg), nil
	default:
		return nil, &InvalidConfigurationError{Reason: fmt.Sprintf("unknown engine %q (want scalar or matrix)", name)}
	}
}

// engine is one refinement pass strategy. assign maps every point to its
// nearest centroid, update recomputes centroids from the current assignment,
// and snapshot materializes the result projection from the final pass.
type engine interface {
	assign()
	update()
	snapshot() Result
}

// refine drives the fixed-budget refinement loop: exactly iterations passes
// of assign-then-update, with the projection taken only after the last pass.
func refine(e engine, iterations int) Result {
	for t := 0; t < iterations; t++ {
		e.assign()
		e.update()
	}
	return e.snapshot()
}
