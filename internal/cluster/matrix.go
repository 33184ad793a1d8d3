package cluster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is the vectorized implementation of the clustering engine. Points
// and centroids live in dense row-major matrices and the assignment step
// computes all point-centroid distances at once through a single matrix
// product per pass, using the identity
//
//	|x - c|^2 = |x|^2 + |c|^2 - 2 * (x . c)
//
// with point norms computed once up front and centroid norms refreshed each
// pass. Semantics are identical to Lloyd up to floating-point rounding: same
// seeding, same first-minimum tie-break, same stale-centroid policy for empty
// clusters. It exists purely for throughput on larger point sets.
type Matrix struct {
	cfg    Config
	metric Metric
}

// NewMatrix creates a vectorized clusterer with the Euclidean metric.
func NewMatrix(cfg Config) *Matrix {
	return &Matrix{cfg: cfg, metric: MetricEuclidean}
}

// Cluster runs the fixed-budget refinement loop over ps.
func (m *Matrix) Cluster(ps PointSet) (Result, error) {
	if err := m.cfg.validate(ps.Len()); err != nil {
		return nil, err
	}
	// The norm decomposition above is an L2 identity; other metrics would
	// need their own bulk formulation.
	if m.metric != MetricEuclidean {
		return nil, &InvalidConfigurationError{Reason: "matrix clusterer supports only the Euclidean metric"}
	}
	return refine(newMatrixEngine(ps, m.cfg), m.cfg.Iterations), nil
}

// Verify at compile time that *Matrix implements Clusterer.
var _ Clusterer = (*Matrix)(nil)

type matrixEngine struct {
	ps PointSet
	n  int
	k  int
	d  int

	points    *mat.Dense // n x d, immutable copy of the input
	centroids *mat.Dense // k x d, rewritten each pass
	dots      *mat.Dense // n x k, points * centroids^T

	pointNorms    []float64 // |x_i|^2, fixed
	centroidNorms []float64 // |c_j|^2, per pass

	assignments []int
	sums        *mat.Dense // k x d accumulator for the update reduction
	counts      []int
}

func newMatrixEngine(ps PointSet, cfg Config) *matrixEngine {
	n, d, k := ps.Len(), ps.Dim(), cfg.Clusters
	e := &matrixEngine{
		ps:            ps,
		n:             n,
		k:             k,
		d:             d,
		points:        mat.NewDense(n, d, nil),
		centroids:     mat.NewDense(k, d, nil),
		dots:          mat.NewDense(n, k, nil),
		pointNorms:    make([]float64, n),
		centroidNorms: make([]float64, k),
		assignments:   make([]int, n),
		sums:          mat.NewDense(k, d, nil),
		counts:        make([]int, k),
	}
	for i := 0; i < n; i++ {
		row := ps.At(i)
		e.points.SetRow(i, row)
		e.pointNorms[i] = floats.Dot(row, row)
	}
	for j, idx := range cfg.seedIndices(n) {
		e.centroids.SetRow(j, ps.At(idx))
	}
	return e
}

func (e *matrixEngine) assign() {
	for j := 0; j < e.k; j++ {
		row := e.centroids.RawRowView(j)
		e.centroidNorms[j] = floats.Dot(row, row)
	}
	e.dots.Mul(e.points, e.centroids.T())

	for i := 0; i < e.n; i++ {
		dotRow := e.dots.RawRowView(i)
		best := 0
		min := e.pointNorms[i] + e.centroidNorms[0] - 2*dotRow[0]
		for j := 1; j < e.k; j++ {
			if d2 := e.pointNorms[i] + e.centroidNorms[j] - 2*dotRow[j]; d2 < min {
				min = d2
				best = j
			}
		}
		e.assignments[i] = best
	}
}

func (e *matrixEngine) update() {
	e.sums.Zero()
	for j := range e.counts {
		e.counts[j] = 0
	}
	for i := 0; i < e.n; i++ {
		c := e.assignments[i]
		dst := e.sums.RawRowView(c)
		floats.Add(dst, e.points.RawRowView(i))
		e.counts[c]++
	}
	for j := 0; j < e.k; j++ {
		if e.counts[j] == 0 {
			continue // stale centroid kept, same as the scalar engine
		}
		dst := e.centroids.RawRowView(j)
		copy(dst, e.sums.RawRowView(j))
		floats.Scale(1/float64(e.counts[j]), dst)
	}
}

func (e *matrixEngine) snapshot() Result {
	res := make(Result, e.k)
	for j := 0; j < e.k; j++ {
		res[j].Center = append(Point(nil), e.centroids.RawRowView(j)...)
		res[j].Members = []Point{}
	}
	for i := 0; i < e.n; i++ {
		c := e.assignments[i]
		res[c].Members = append(res[c].Members, e.ps.At(i))
	}
	return res
}
