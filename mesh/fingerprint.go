package mesh

import (
	"cmp"
	"slices"
)

// PointCloud is one scanner's beacon list in that scanner's own frame
type PointCloud []Vec3

// Neighbor is one entry of a point's distance list
type Neighbor struct {
	Point  Vec3
	DistSq int64
}

// Fingerprint maps every point of a cloud to its squared distances to every
// point of the same cloud. The point itself is included as a zero-distance
// entry, so a beacon shared by n scanner-visible beacons scores n, not n-1.
type Fingerprint map[Vec3][]Neighbor

// BuildFingerprint computes all pairwise squared distances of a cloud.
// Duplicate points collapse to a single entry. Neighbor lists are sorted by
// distance, then point, so the result does not depend on input order.
func BuildFingerprint(cloud PointCloud) Fingerprint {
	unique := make([]Vec3, 0, len(cloud))
	seen := make(map[Vec3]struct{}, len(cloud))
	for _, p := range cloud {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}

	fp := make(Fingerprint, len(unique))
	for _, p := range unique {
		neighbors := make([]Neighbor, 0, len(unique))
		for _, q := range unique {
			neighbors = append(neighbors, Neighbor{Point: q, DistSq: p.DistanceSquared(q)})
		}
		slices.SortFunc(neighbors, func(a, b Neighbor) int {
			if c := cmp.Compare(a.DistSq, b.DistSq); c != 0 {
				return c
			}
			return a.Point.Compare(b.Point)
		})
		fp[p] = neighbors
	}
	return fp
}

// Points returns the fingerprinted points in sorted order
func (fp Fingerprint) Points() []Vec3 {
	points := make([]Vec3, 0, len(fp))
	for p := range fp {
		points = append(points, p)
	}
	slices.SortFunc(points, Vec3.Compare)
	return points
}

// distances returns the sorted squared distances recorded for p
func (fp Fingerprint) distances(p Vec3) []int64 {
	neighbors := fp[p]
	out := make([]int64, len(neighbors))
	for i, n := range neighbors {
		out[i] = n.DistSq
	}
	return out
}
