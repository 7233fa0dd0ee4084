package mesh

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlignOptions holds configuration for a full alignment run
type AlignOptions struct {
	Reference  int // Scanner whose frame becomes the global frame
	MinOverlap int // Shared beacons required before two scanners are related
	Workers    int // Concurrent pair matchers
}

// DefaultAlignOptions returns the defaults: scanner 0 as reference, 12 shared beacons
func DefaultAlignOptions() AlignOptions {
	return AlignOptions{
		Reference:  0,
		MinOverlap: DefaultMinOverlap,
		Workers:    runtime.GOMAXPROCS(0),
	}
}

// Alignment is the result of aligning every scanner to the reference
type Alignment struct {
	RunID        string
	Reference    int
	Graph        *TransformGraph
	Paths        map[int]Path
	Offsets      OffsetTable
	Poses        []Pose
	Origins      []Vec3
	Beacons      *BeaconSet
	MaxManhattan int64
	Duration     time.Duration
}

// Align runs the whole pipeline: fingerprints, correspondences and pairwise
// transforms (in parallel), then paths, composed offsets, merged beacons and
// the origin metric. Path finding starts only once the graph is complete.
func Align(ctx context.Context, clouds []PointCloud, opts AlignOptions) (*Alignment, error) {
	start := time.Now()
	if len(clouds) == 0 {
		return nil, fmt.Errorf("align: no scanners")
	}
	if opts.Reference < 0 || opts.Reference >= len(clouds) {
		return nil, fmt.Errorf("align: reference %d out of range [0,%d)", opts.Reference, len(clouds))
	}

	runID := uuid.NewString()
	logger := log.With().Str("component", "align").Str("run", runID).Logger()
	logger.Info().Int("scanners", len(clouds)).Int("reference", opts.Reference).Msg("alignment started")

	graph, err := BuildGraph(ctx, clouds, GraphOptions{MinOverlap: opts.MinOverlap, Workers: opts.Workers})
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	paths, err := FindPaths(graph, opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	offsets, err := ComposeOffsets(graph, paths)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	beacons, err := MergeBeacons(clouds, graph, offsets, paths, opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	poses, err := ComputePoses(graph, offsets, paths, opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	origins, err := Origins(offsets, len(clouds), opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	a := &Alignment{
		RunID:        runID,
		Reference:    opts.Reference,
		Graph:        graph,
		Paths:        paths,
		Offsets:      offsets,
		Poses:        poses,
		Origins:      origins,
		Beacons:      beacons,
		MaxManhattan: MaxManhattan(origins),
		Duration:     time.Since(start),
	}

	logger.Info().
		Int("beacons", a.UniqueBeacons()).
		Int64("maxManhattan", a.MaxManhattan).
		Dur("took", a.Duration).
		Msg("alignment finished")
	return a, nil
}

// UniqueBeacons returns the number of distinct beacons in the reference frame
func (a *Alignment) UniqueBeacons() int {
	if a == nil || a.Beacons == nil {
		return 0
	}
	return a.Beacons.Len()
}

// ToReference maps a point seen by scanner into the reference frame
func (a *Alignment) ToReference(scanner int, p Vec3) (Vec3, error) {
	if scanner < 0 || scanner >= len(a.Poses) {
		return Vec3{}, fmt.Errorf("scanner %d out of range [0,%d)", scanner, len(a.Poses))
	}
	return a.Poses[scanner].ToReference(p), nil
}

// Scanners returns the number of aligned scanners
func (a *Alignment) Scanners() int {
	return len(a.Poses)
}
