package mesh

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// BeaconSet is the deduplicated set of beacons in the reference frame,
// remembering which scanners observed each one
type BeaconSet struct {
	observers map[Vec3][]int
}

// NewBeaconSet creates an empty set
func NewBeaconSet() *BeaconSet {
	return &BeaconSet{observers: make(map[Vec3][]int)}
}

// Add inserts p as seen by scanner. Re-adding an existing beacon only records the observer.
func (s *BeaconSet) Add(p Vec3, scanner int) {
	obs := s.observers[p]
	if !slices.Contains(obs, scanner) {
		obs = append(obs, scanner)
		slices.Sort(obs)
	}
	s.observers[p] = obs
}

// Len returns the number of unique beacons
func (s *BeaconSet) Len() int {
	return len(s.observers)
}

// Contains reports whether p is in the set
func (s *BeaconSet) Contains(p Vec3) bool {
	_, ok := s.observers[p]
	return ok
}

// Observers returns the scanners that saw p, ascending
func (s *BeaconSet) Observers(p Vec3) []int {
	return slices.Clone(s.observers[p])
}

// Sorted returns the beacons in lexicographic order
func (s *BeaconSet) Sorted() []Vec3 {
	out := slices.Collect(maps.Keys(s.observers))
	slices.SortFunc(out, Vec3.Compare)
	return out
}

// MergeBeacons brings every cloud into the reference frame and deduplicates.
// The reference cloud is inserted untouched; every other cloud is walked along
// its path one hop at a time:
//
//	p = ApplyMapping(p, mapping(from,to)) + offset(to,from)
func MergeBeacons(clouds []PointCloud, g *TransformGraph, offsets OffsetTable, paths map[int]Path, reference int) (*BeaconSet, error) {
	set := NewBeaconSet()
	for k, cloud := range clouds {
		if k == reference {
			for _, p := range cloud {
				set.Add(p, k)
			}
			continue
		}

		path, ok := paths[k]
		if !ok {
			return nil, &DisconnectedSensorError{Scanner: k, Reference: reference, Component: g.componentOf(k)}
		}
		hops := path.Hops()
		for _, p := range cloud {
			cur := p
			for _, hop := range hops {
				t, ok := g.Edge(hop.From, hop.To)
				if !ok {
					return nil, fmt.Errorf("merge beacons: %d-%d is not a direct edge on path %v", hop.From, hop.To, path)
				}
				back, ok := offsets.Get(hop.To, hop.From)
				if !ok {
					return nil, fmt.Errorf("merge beacons: missing offset(%d,%d)", hop.To, hop.From)
				}
				cur = ApplyMapping(cur, t.Mapping).Add(back)
			}
			set.Add(cur, k)
		}
	}
	return set, nil
}

// Origins returns every scanner's origin in the reference frame, indexed by scanner
func Origins(offsets OffsetTable, n, reference int) ([]Vec3, error) {
	out := make([]Vec3, n)
	for k := 0; k < n; k++ {
		o, ok := offsets.Get(reference, k)
		if !ok {
			return nil, fmt.Errorf("origins: offset(%d,%d) unknown", reference, k)
		}
		out[k] = o
	}
	return out, nil
}

// MaxManhattan returns the largest L1 distance between any two origins
func MaxManhattan(origins []Vec3) int64 {
	var best int64
	for i := 0; i < len(origins); i++ {
		for j := i + 1; j < len(origins); j++ {
			best = max(best, ManhattanDistance(origins[i], origins[j]))
		}
	}
	return best
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
