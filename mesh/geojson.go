package mesh

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GeometryType represents the GeoJSON geometry type
type GeometryType string

const (
	GeometryPoint           GeometryType = "Point"
	GeometryLineString      GeometryType = "LineString"
	GeometryPolygon         GeometryType = "Polygon"
	GeometryMultiLineString GeometryType = "MultiLineString"
)

// Geometry represents a GeoJSON geometry object
type Geometry struct {
	Type        GeometryType    `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature represents a GeoJSON feature with geometry and properties
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	ID         interface{}            `json:"id,omitempty"`
}

// FeatureCollection represents a GeoJSON FeatureCollection.
// BBox is the plan-view (x, y) extent of every feature.
type FeatureCollection struct {
	Type     string     `json:"type"`
	BBox     []float64  `json:"bbox,omitempty"`
	Features []*Feature `json:"features"`
}

// NewFeatureCollection creates a new empty FeatureCollection
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*Feature, 0),
	}
}

// AddFeature appends a feature to the collection
func (fc *FeatureCollection) AddFeature(f *Feature) {
	fc.Features = append(fc.Features, f)
}

// NewFeature creates a Feature with the given geometry and properties
func NewFeature(geom *Geometry, props map[string]interface{}) *Feature {
	if props == nil {
		props = make(map[string]interface{})
	}
	return &Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: props,
	}
}

// PointGeometry converts a beacon or origin to a 3-D GeoJSON Point
func PointGeometry(v Vec3) *Geometry {
	coords, _ := json.Marshal([3]int64{v.X, v.Y, v.Z})
	return &Geometry{Type: GeometryPoint, Coordinates: coords}
}

// LinkGeometry converts direct scanner overlaps into a MultiLineString between origins
func LinkGeometry(links [][2]Vec3) *Geometry {
	lines := make([][][3]int64, len(links))
	for i, l := range links {
		lines[i] = [][3]int64{
			{l[0].X, l[0].Y, l[0].Z},
			{l[1].X, l[1].Y, l[1].Z},
		}
	}
	coords, _ := json.Marshal(lines)
	return &Geometry{Type: GeometryMultiLineString, Coordinates: coords}
}

// polygonGeometry converts an orb polygon to a GeoJSON Polygon
func polygonGeometry(poly orb.Polygon) *Geometry {
	rings := make([][][2]float64, len(poly))
	for i, ring := range poly {
		coords := make([][2]float64, len(ring))
		for j, p := range ring {
			coords[j] = [2]float64{p[0], p[1]}
		}
		rings[i] = coords
	}
	coords, _ := json.Marshal(rings)
	return &Geometry{Type: GeometryPolygon, Coordinates: coords}
}

// PlanBound returns the plan-view (x, y) extent of every beacon and origin
func PlanBound(a *Alignment) orb.Bound {
	mp := make(orb.MultiPoint, 0, a.UniqueBeacons()+len(a.Origins))
	for _, b := range a.Beacons.Sorted() {
		mp = append(mp, orb.Point{float64(b.X), float64(b.Y)})
	}
	for _, o := range a.Origins {
		mp = append(mp, orb.Point{float64(o.X), float64(o.Y)})
	}
	return mp.Bound()
}

// AlignmentToFeatureCollection exports the merged map: one Point per beacon
// (with the scanners that observed it), one Point per scanner origin, the
// direct overlaps as a MultiLineString and the plan-view coverage rectangle.
// names labels scanners by index; colors may be nil.
func AlignmentToFeatureCollection(a *Alignment, names []string, colors []string) *FeatureCollection {
	fc := NewFeatureCollection()
	if a == nil {
		return fc
	}

	label := func(k int) string {
		if k < len(names) && names[k] != "" {
			return names[k]
		}
		return fmt.Sprintf("scanner %d", k)
	}

	for i, b := range a.Beacons.Sorted() {
		observers := a.Beacons.Observers(b)
		labels := make([]string, len(observers))
		for j, k := range observers {
			labels[j] = label(k)
		}
		f := NewFeature(PointGeometry(b), map[string]interface{}{
			"kind":      "beacon",
			"observers": labels,
		})
		f.ID = fmt.Sprintf("beacon-%d", i)
		fc.AddFeature(f)
	}

	for k, o := range a.Origins {
		props := map[string]interface{}{
			"kind":      "scanner",
			"scannerId": label(k),
			"index":     k,
			"reference": k == a.Reference,
		}
		if k < len(a.Poses) {
			props["mapping"] = a.Poses[k].Mapping.String()
		}
		if k < len(colors) && colors[k] != "" {
			props["color"] = colors[k]
		}
		f := NewFeature(PointGeometry(o), props)
		f.ID = fmt.Sprintf("scanner-%d", k)
		fc.AddFeature(f)
	}

	var links [][2]Vec3
	for _, e := range a.Graph.Edges() {
		if e.From < e.To && e.From < len(a.Origins) && e.To < len(a.Origins) {
			links = append(links, [2]Vec3{a.Origins[e.From], a.Origins[e.To]})
		}
	}
	if len(links) > 0 {
		fc.AddFeature(NewFeature(LinkGeometry(links), map[string]interface{}{
			"kind":  "overlaps",
			"count": len(links),
		}))
	}

	bound := PlanBound(a)
	coverage := bound.ToPolygon()
	fc.AddFeature(NewFeature(polygonGeometry(coverage), map[string]interface{}{
		"kind": "coverage",
		"area": planar.Area(coverage),
	}))
	fc.BBox = []float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}

	return fc
}

// SaveGeoJSON writes a FeatureCollection as indented JSON
func SaveGeoJSON(path string, fc *FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON file: %w", err)
	}
	return nil
}
