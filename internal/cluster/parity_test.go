package cluster

import (
	"math"
	"math/rand"
	"testing"
)

// TestLloydMatrixParity runs both implementations over the same inputs with
// identical seeds and requires identical final memberships and centroids
// within 1e-9 relative tolerance. The matrix path exists purely for
// throughput; it must not change semantics.
func TestLloydMatrixParity(t *testing.T) {
	cases := []struct {
		n, dim, k, iters int
	}{
		{10, 2, 2, 10},
		{100, 3, 4, 10},
		{1000, 3, 8, 10},
		{1000, 6, 5, 25},
	}

	for _, tc := range cases {
		rng := rand.New(rand.NewSource(int64(tc.n + tc.k)))
		points := make([]Point, tc.n)
		for i := range points {
			p := make(Point, tc.dim)
			for d := range p {
				p[d] = rng.NormFloat64() * 50
			}
			points[i] = p
		}
		ps := mustPointSet(t, points)

		const seed = 424242
		lloyd := NewLloyd(Config{Clusters: tc.k, Iterations: tc.iters, Rand: rand.New(rand.NewSource(seed))})
		matrix := NewMatrix(Config{Clusters: tc.k, Iterations: tc.iters, Rand: rand.New(rand.NewSource(seed))})

		ref, err := lloyd.Cluster(ps)
		if err != nil {
			t.Fatalf("n=%d: lloyd: %v", tc.n, err)
		}
		opt, err := matrix.Cluster(ps)
		if err != nil {
			t.Fatalf("n=%d: matrix: %v", tc.n, err)
		}

		if len(ref) != len(opt) {
			t.Fatalf("n=%d: cluster counts differ: %d vs %d", tc.n, len(ref), len(opt))
		}
		for id := range ref {
			if !centersWithinRel(ref[id].Center, opt[id].Center, 1e-9) {
				t.Errorf("n=%d: cluster %d centers diverge: %v vs %v", tc.n, id, ref[id].Center, opt[id].Center)
			}
			if len(ref[id].Members) != len(opt[id].Members) {
				t.Fatalf("n=%d: cluster %d member counts differ: %d vs %d",
					tc.n, id, len(ref[id].Members), len(opt[id].Members))
			}
			for i := range ref[id].Members {
				if !pointsClose(ref[id].Members[i], opt[id].Members[i], 0) {
					t.Errorf("n=%d: cluster %d member %d differs: %v vs %v",
						tc.n, id, i, ref[id].Members[i], opt[id].Members[i])
				}
			}
		}
	}
}

func centersWithinRel(a, b Point, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := math.Abs(a[i] - b[i])
		scale := math.Max(math.Abs(a[i]), math.Abs(b[i]))
		if scale < 1 {
			scale = 1
		}
		if diff > tol*scale {
			return false
		}
	}
	return true
}
