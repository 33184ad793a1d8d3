package cluster

import (
	"fmt"
	"math"
)

// Metric identifies the distance function used to compare points.
// Euclidean is the only metric the engine currently ships, but callers pass a
// metric value rather than relying on an ambient default so adding one is a
// local change.
type Metric int

const (
	// MetricEuclidean is the L2 distance sqrt(sum((a_i-b_i)^2)).
	MetricEuclidean Metric = iota
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// DistanceFunc computes the distance between two equal-dimension points.
// Dimension agreement is the caller's responsibility; PointSet construction
// has already enforced it for engine-internal calls.
type DistanceFunc func(a, b Point) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (DistanceFunc, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Euclidean returns the L2 distance between a and b.
func Euclidean(a, b Point) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
