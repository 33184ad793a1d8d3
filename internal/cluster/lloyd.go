package cluster

// Lloyd is the scalar reference implementation of the clustering engine. It
// walks points and centroids with plain loops and is the behavioral yardstick
// the vectorized Matrix implementation is tested against.
type Lloyd struct {
	cfg    Config
	metric Metric
}

// NewLloyd creates a scalar clusterer with the Euclidean metric.
func NewLloyd(cfg Config) *Lloyd {
	return &Lloyd{cfg: cfg, metric: MetricEuclidean}
}

// NewLloydWithMetric creates a scalar clusterer using the given metric.
func NewLloydWithMetric(cfg Config, m Metric) *Lloyd {
	return &Lloyd{cfg: cfg, metric: m}
}

// Cluster runs the fixed-budget refinement loop over ps.
func (l *Lloyd) Cluster(ps PointSet) (Result, error) {
	if err := l.cfg.validate(ps.Len()); err != nil {
		return nil, err
	}
	dist, err := Provider(l.metric)
	if err != nil {
		return nil, &InvalidConfigurationError{Reason: err.Error()}
	}
	return refine(newScalarEngine(ps, l.cfg, dist), l.cfg.Iterations), nil
}

// Verify at compile time that *Lloyd implements Clusterer.
var _ Clusterer = (*Lloyd)(nil)

// scalarEngine holds the call-local state of one scalar run. Centroids and
// assignments are created at call start and discarded once the result
// projection is taken.
type scalarEngine struct {
	ps          PointSet
	k           int
	dist        DistanceFunc
	centroids   []Point
	assignments []int
	sums        []Point
	counts      []int
}

func newScalarEngine(ps PointSet, cfg Config, dist DistanceFunc) *scalarEngine {
	e := &scalarEngine{
		ps:          ps,
		k:           cfg.Clusters,
		dist:        dist,
		centroids:   make([]Point, cfg.Clusters),
		assignments: make([]int, ps.Len()),
		sums:        make([]Point, cfg.Clusters),
		counts:      make([]int, cfg.Clusters),
	}
	for i, idx := range cfg.seedIndices(ps.Len()) {
		e.centroids[i] = append(Point(nil), ps.At(idx)...)
		e.sums[i] = make(Point, ps.Dim())
	}
	return e
}

// assign maps every point to its nearest centroid. Ties go to the lowest
// cluster id: the scan is left to right and only a strictly smaller distance
// displaces the current best.
func (e *scalarEngine) assign() {
	for i := 0; i < e.ps.Len(); i++ {
		p := e.ps.At(i)
		best := 0
		min := e.dist(p, e.centroids[0])
		for c := 1; c < e.k; c++ {
			if d := e.dist(p, e.centroids[c]); d < min {
				min = d
				best = c
			}
		}
		e.assignments[i] = best
	}
}

// update recomputes each centroid as the mean of its assigned points. A
// cluster with no members keeps its previous centroid untouched.
func (e *scalarEngine) update() {
	for c := 0; c < e.k; c++ {
		clear(e.sums[c])
		e.counts[c] = 0
	}
	for i := 0; i < e.ps.Len(); i++ {
		c := e.assignments[i]
		p := e.ps.At(i)
		for d := range p {
			e.sums[c][d] += p[d]
		}
		e.counts[c]++
	}
	for c := 0; c < e.k; c++ {
		if e.counts[c] == 0 {
			continue
		}
		inv := 1 / float64(e.counts[c])
		for d := range e.centroids[c] {
			e.centroids[c][d] = e.sums[c][d] * inv
		}
	}
}

// snapshot projects the final assignment into the result structure, keeping
// members in input order.
func (e *scalarEngine) snapshot() Result {
	res := make(Result, e.k)
	for c := 0; c < e.k; c++ {
		res[c].Center = append(Point(nil), e.centroids[c]...)
		res[c].Members = []Point{}
	}
	for i := 0; i < e.ps.Len(); i++ {
		c := e.assignments[i]
		res[c].Members = append(res[c].Members, e.ps.At(i))
	}
	return res
}
