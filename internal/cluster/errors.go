package cluster

import "fmt"

// InvalidConfigurationError reports a clustering configuration that cannot
// produce a run: non-positive cluster or iteration counts, or more clusters
// than points. It is returned before any centroid is chosen, so no partial
// state is ever exposed.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return "invalid clustering configuration: " + e.Reason
}

// DimensionMismatchError reports a point whose dimension differs from the
// first point in the set. It is detected once, at PointSet construction, not
// per distance call.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch at point %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}
