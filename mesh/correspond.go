package mesh

import "slices"

// DefaultMinOverlap is the number of shared beacons that proves two scanners overlap
const DefaultMinOverlap = 12

// Correspondence pairs a beacon seen by scanner A with the same beacon seen by scanner B
type Correspondence struct {
	A Vec3 `json:"a"`
	B Vec3 `json:"b"`
}

// FindCorrespondences matches every point of a against every point of b and
// keeps the pairs whose distance lists share at least threshold values.
//
// Distances are compared exactly (squared integers). Shared values are counted
// as a multiset intersection: a distance that occurs twice in one list and once
// in the other counts once. The result is sorted by (A, B).
func FindCorrespondences(a, b Fingerprint, threshold int) []Correspondence {
	if threshold <= 0 {
		threshold = DefaultMinOverlap
	}

	aPoints := a.Points()
	bPoints := b.Points()

	bDists := make([][]int64, len(bPoints))
	for j, pb := range bPoints {
		bDists[j] = b.distances(pb)
	}

	var result []Correspondence
	for _, pa := range aPoints {
		da := a.distances(pa)
		if len(da) < threshold {
			continue
		}
		for j, pb := range bPoints {
			if len(bDists[j]) < threshold {
				continue
			}
			if countShared(da, bDists[j]) >= threshold {
				result = append(result, Correspondence{A: pa, B: pb})
			}
		}
	}

	slices.SortFunc(result, func(x, y Correspondence) int {
		if c := x.A.Compare(y.A); c != 0 {
			return c
		}
		return x.B.Compare(y.B)
	})
	return result
}

// countShared returns the size of the multiset intersection of two sorted slices
func countShared(x, y []int64) int {
	i, j, n := 0, 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i] == y[j]:
			n++
			i++
			j++
		case x[i] < y[j]:
			i++
		default:
			j++
		}
	}
	return n
}
