package mesh

import "fmt"

// OffsetTable maps (i, j) to the origin of scanner j expressed in scanner i's frame
type OffsetTable map[Edge]Vec3

// NewOffsetTable seeds a table from the graph's direct edges
func NewOffsetTable(g *TransformGraph) OffsetTable {
	t := make(OffsetTable, len(g.edges))
	for e, pt := range g.edges {
		t[e] = pt.Offset
	}
	return t
}

// Get returns offset(i, j); offset(i, i) is the zero vector
func (t OffsetTable) Get(i, j int) (Vec3, bool) {
	if i == j {
		return Vec3{}, true
	}
	v, ok := t[Edge{From: i, To: j}]
	return v, ok
}

// ComposeOffsets fills the offsets missing between each path's start and
// every scanner along it, chaining through the previous hop:
//
//	offset(i,j) = offset(i,m) + ApplyMapping(offset(m,j), mapping(m,i))
//
// After it returns, offset(reference, k) is known for every path start k.
func ComposeOffsets(g *TransformGraph, paths map[int]Path) (OffsetTable, error) {
	offsets := NewOffsetTable(g)

	for _, start := range sortedKeys(paths) {
		path := paths[start]
		if len(path) == 0 || path[0] != start {
			return nil, fmt.Errorf("compose offsets: path for scanner %d does not start at it: %v", start, path)
		}
		j := start
		for _, hop := range path.Hops() {
			m, i := hop.From, hop.To
			if _, ok := offsets.Get(i, j); ok {
				continue
			}

			im, ok := offsets.Get(i, m)
			if !ok {
				return nil, fmt.Errorf("compose offsets: missing offset(%d,%d) on path %v", i, m, path)
			}
			mj, ok := offsets.Get(m, j)
			if !ok {
				return nil, fmt.Errorf("compose offsets: missing offset(%d,%d) on path %v", m, j, path)
			}
			mi, ok := g.Edge(m, i)
			if !ok {
				return nil, fmt.Errorf("compose offsets: %d-%d is not a direct edge on path %v", m, i, path)
			}

			offsets[Edge{From: i, To: j}] = im.Add(ApplyMapping(mj, mi.Mapping))
		}
	}

	return offsets, nil
}
