package mesh

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Edge is an ordered scanner pair
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Reverse returns the edge pointing the other way
func (e Edge) Reverse() Edge {
	return Edge{From: e.To, To: e.From}
}

func (e Edge) compare(o Edge) int {
	if e.From != o.From {
		return e.From - o.From
	}
	return e.To - o.To
}

// TransformGraph holds the directly observed transforms between scanners.
// It is read-only once BuildGraph returns.
type TransformGraph struct {
	scanners int
	edges    map[Edge]PairTransform
}

// NewTransformGraph creates an empty graph over n scanners
func NewTransformGraph(n int) *TransformGraph {
	return &TransformGraph{
		scanners: n,
		edges:    make(map[Edge]PairTransform),
	}
}

// GraphOptions configures BuildGraph
type GraphOptions struct {
	MinOverlap int // correspondences required per edge (default 12)
	Workers    int // concurrent pair matchers (default GOMAXPROCS)
}

// pairResult is what one worker produces for one scanner pair
type pairResult struct {
	from, to         int
	forward, reverse PairTransform
	matched          bool
	correspondences  int
}

// BuildGraph fingerprints every cloud, matches every unordered pair and
// stores both directions of each solved transform.
//
// Pairs are matched concurrently; each worker fills its own result slot and
// the graph is assembled after all workers finish.
func BuildGraph(ctx context.Context, clouds []PointCloud, opts GraphOptions) (*TransformGraph, error) {
	if opts.MinOverlap <= 0 {
		opts.MinOverlap = DefaultMinOverlap
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	n := len(clouds)
	logger := log.With().Str("component", "graph").Logger()

	fingerprints := make([]Fingerprint, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range clouds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fingerprints[i] = BuildFingerprint(clouds[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building fingerprints: %w", err)
	}

	results := make([]pairResult, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			results = append(results, pairResult{from: i, to: j})
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for k := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := &results[k]
			corr := FindCorrespondences(fingerprints[r.from], fingerprints[r.to], opts.MinOverlap)
			r.correspondences = len(corr)
			if len(corr) == 0 {
				return nil
			}
			fwd, rev, err := SolveTransform(corr)
			if err != nil {
				return &PairError{From: r.from, To: r.to, Err: err}
			}
			r.forward, r.reverse, r.matched = fwd, rev, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := NewTransformGraph(n)
	for _, r := range results {
		if !r.matched {
			continue
		}
		graph.edges[Edge{From: r.from, To: r.to}] = r.forward
		graph.edges[Edge{From: r.to, To: r.from}] = r.reverse
		logger.Debug().
			Int("from", r.from).
			Int("to", r.to).
			Int("correspondences", r.correspondences).
			Str("mapping", r.forward.Mapping.String()).
			Stringer("offset", r.forward.Offset).
			Msg("scanner pair overlaps")
	}

	logger.Info().Int("scanners", n).Int("edges", len(graph.edges)/2).Msg("transform graph built")
	return graph, nil
}

// Len returns the number of scanners
func (g *TransformGraph) Len() int {
	return g.scanners
}

// Set records a direct transform (used when restoring or testing graphs)
func (g *TransformGraph) Set(from, to int, t PairTransform) {
	g.edges[Edge{From: from, To: to}] = t
}

// Edge returns the direct transform from -> to
func (g *TransformGraph) Edge(from, to int) (PairTransform, bool) {
	t, ok := g.edges[Edge{From: from, To: to}]
	return t, ok
}

// HasEdge reports whether from and to overlap directly
func (g *TransformGraph) HasEdge(from, to int) bool {
	_, ok := g.edges[Edge{From: from, To: to}]
	return ok
}

// Neighbors returns the scanners directly related to from, ascending
func (g *TransformGraph) Neighbors(from int) []int {
	var out []int
	for e := range g.edges {
		if e.From == from {
			out = append(out, e.To)
		}
	}
	slices.Sort(out)
	return out
}

// Edges returns every directed edge, sorted
func (g *TransformGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, Edge.compare)
	return out
}

// Components groups scanners that are connected through direct edges.
// Each component is sorted and components are ordered by their first scanner.
func (g *TransformGraph) Components() [][]int {
	ug := simple.NewUndirectedGraph()
	for i := 0; i < g.scanners; i++ {
		ug.AddNode(simple.Node(int64(i)))
	}
	for e := range g.edges {
		if e.From < e.To {
			ug.SetEdge(ug.NewEdge(simple.Node(int64(e.From)), simple.Node(int64(e.To))))
		}
	}

	var out [][]int
	for _, comp := range topo.ConnectedComponents(ug) {
		ids := make([]int, 0, len(comp))
		for _, node := range comp {
			ids = append(ids, int(node.ID()))
		}
		slices.Sort(ids)
		out = append(out, ids)
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

// componentOf returns the sorted component containing scanner
func (g *TransformGraph) componentOf(scanner int) []int {
	for _, comp := range g.Components() {
		if slices.Contains(comp, scanner) {
			return comp
		}
	}
	return []int{scanner}
}
