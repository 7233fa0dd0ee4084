package mesh

import (
	"fmt"
	"slices"
)

// Path is a chain of scanners, each consecutive pair joined by a direct edge
type Path []int

// Hops returns the consecutive (from, to) pairs along the path
func (p Path) Hops() []Edge {
	if len(p) < 2 {
		return nil
	}
	hops := make([]Edge, 0, len(p)-1)
	for i := 0; i+1 < len(p); i++ {
		hops = append(hops, Edge{From: p[i], To: p[i+1]})
	}
	return hops
}

// FindPath searches depth-first for any chain of direct edges from scanner
// from to the reference scanner. The first chain found is returned; it is not
// necessarily the shortest.
func FindPath(g *TransformGraph, from, reference int) (Path, error) {
	if from < 0 || from >= g.Len() || reference < 0 || reference >= g.Len() {
		return nil, fmt.Errorf("find path: scanner %d or reference %d out of range [0,%d)", from, reference, g.Len())
	}

	stack := []Path{{from}}
	expandedFrom := make(map[int]bool, g.Len())
	for len(stack) > 0 {
		state := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		last := state[len(state)-1]
		if last == reference {
			return state, nil
		}
		// A scanner already expanded cannot lead anywhere new
		if expandedFrom[last] {
			continue
		}
		expandedFrom[last] = true

		neighbors := g.Neighbors(last)
		// Push in reverse so the lowest-numbered neighbour is expanded first
		for i := len(neighbors) - 1; i >= 0; i-- {
			next := neighbors[i]
			if expandedFrom[next] || slices.Contains(state, next) {
				continue
			}
			expanded := make(Path, len(state), len(state)+1)
			copy(expanded, state)
			stack = append(stack, append(expanded, next))
		}
	}

	return nil, &DisconnectedSensorError{
		Scanner:   from,
		Reference: reference,
		Component: g.componentOf(from),
	}
}

// FindPaths finds a path to the reference for every other scanner
func FindPaths(g *TransformGraph, reference int) (map[int]Path, error) {
	paths := make(map[int]Path, g.Len())
	for k := 0; k < g.Len(); k++ {
		if k == reference {
			continue
		}
		p, err := FindPath(g, k, reference)
		if err != nil {
			return nil, err
		}
		paths[k] = p
	}
	return paths, nil
}
