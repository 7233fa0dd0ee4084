package mesh

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultAlignmentCachePath is the default path for the alignment cache
const DefaultAlignmentCachePath = defaultCachePath

// NewAlignmentCache snapshots an alignment for persistence. names labels the
// scanners by index and may be shorter than the scanner count.
func NewAlignmentCache(a *Alignment, names []string) *AlignmentData {
	data := &AlignmentData{
		RunID:        a.RunID,
		Reference:    a.Reference,
		Scanners:     make([]ScannerPose, len(a.Poses)),
		Beacons:      a.UniqueBeacons(),
		MaxManhattan: a.MaxManhattan,
		LastUpdated:  time.Now().Unix(),
	}
	for k, pose := range a.Poses {
		sp := ScannerPose{Mapping: pose.Mapping, Origin: pose.Origin}
		if k < len(names) {
			sp.Name = names[k]
		}
		data.Scanners[k] = sp
	}
	for _, e := range a.Graph.Edges() {
		if e.From > e.To {
			continue
		}
		t, _ := a.Graph.Edge(e.From, e.To)
		data.Edges = append(data.Edges, CachedEdge{
			From:    e.From,
			To:      e.To,
			Mapping: t.Mapping,
			Offset:  t.Offset,
			Support: t.Support,
		})
	}
	return data
}

// LoadAlignment loads a cached alignment. A missing file is not an error.
func LoadAlignment(path string) (*AlignmentData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading alignment cache: %w", err)
	}

	var cache AlignmentData
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing alignment cache: %w", err)
	}

	return &cache, nil
}

// SaveAlignment writes the alignment cache as indented JSON
func SaveAlignment(path string, cache *AlignmentData) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	cache.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling alignment cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing alignment cache: %w", err)
	}

	return nil
}

// Poses rebuilds the scanner poses stored in the cache
func (c *AlignmentData) Poses() []Pose {
	if c == nil {
		return nil
	}
	poses := make([]Pose, len(c.Scanners))
	for k, sp := range c.Scanners {
		poses[k] = Pose{Mapping: sp.Mapping, Origin: sp.Origin}
	}
	return poses
}

// Graph rebuilds the transform graph from the cached edges
func (c *AlignmentData) Graph() *TransformGraph {
	g := NewTransformGraph(len(c.Scanners))
	for _, e := range c.Edges {
		fwd := PairTransform{Mapping: e.Mapping, Offset: e.Offset, Support: e.Support}
		inv := e.Mapping.Inverse()
		rev := PairTransform{
			Mapping: inv,
			Offset:  ApplyMapping(e.Offset, e.Mapping).Neg(),
			Support: e.Support,
		}
		g.Set(e.From, e.To, fwd)
		g.Set(e.To, e.From, rev)
	}
	return g
}

// AlignmentStatus summarizes the cache for the status endpoint
type AlignmentStatus struct {
	RunID           string    `json:"runId,omitempty"`
	Reference       int       `json:"reference"`
	AlignedScanners []string  `json:"alignedScanners"`
	MissingScanners []string  `json:"missingScanners"`
	Beacons         int       `json:"beacons"`
	MaxManhattan    int64     `json:"maxManhattan"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// GetStatus reports which of the expected scanners the cache covers
func (c *AlignmentData) GetStatus(expectedScanners []string) AlignmentStatus {
	var status AlignmentStatus

	if c == nil {
		status.MissingScanners = expectedScanners
		return status
	}

	status.RunID = c.RunID
	status.Reference = c.Reference
	status.Beacons = c.Beacons
	status.MaxManhattan = c.MaxManhattan
	status.LastUpdated = time.Unix(c.LastUpdated, 0)

	aligned := make(map[string]bool, len(c.Scanners))
	for k, sp := range c.Scanners {
		name := sp.Name
		if name == "" {
			name = fmt.Sprintf("scanner %d", k)
		}
		status.AlignedScanners = append(status.AlignedScanners, name)
		aligned[name] = true
	}

	for _, id := range expectedScanners {
		if !aligned[id] {
			status.MissingScanners = append(status.MissingScanners, id)
		}
	}

	return status
}

// NeedsRealignment checks if the cache is missing or older than maxAge
func (c *AlignmentData) NeedsRealignment(maxAge time.Duration) bool {
	if c == nil || c.LastUpdated == 0 {
		return true
	}
	return time.Since(time.Unix(c.LastUpdated, 0)) > maxAge
}
