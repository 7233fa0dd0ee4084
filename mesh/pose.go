package mesh

import "fmt"

// Pose places a scanner in the reference frame: reference = ApplyMapping(local, Mapping) + Origin
type Pose struct {
	Mapping AxisMapping `json:"mapping"`
	Origin  Vec3        `json:"origin"`
}

// IdentityPose is the reference scanner's pose
func IdentityPose() Pose {
	return Pose{Mapping: IdentityMapping()}
}

// ToReference maps a scanner-local point into the reference frame
func (p Pose) ToReference(local Vec3) Vec3 {
	return ApplyMapping(local, p.Mapping).Add(p.Origin)
}

// ToLocal maps a reference-frame point into the scanner's frame
func (p Pose) ToLocal(ref Vec3) Vec3 {
	return ApplyMapping(ref.Sub(p.Origin), p.Mapping.Inverse())
}

// ComputePoses collapses each scanner's path into a single pose by composing
// the hop mappings. The origin is offset(reference, k), so offsets must
// already be composed.
func ComputePoses(g *TransformGraph, offsets OffsetTable, paths map[int]Path, reference int) ([]Pose, error) {
	poses := make([]Pose, g.Len())
	for k := range poses {
		if k == reference {
			poses[k] = IdentityPose()
			continue
		}
		path, ok := paths[k]
		if !ok {
			return nil, &DisconnectedSensorError{Scanner: k, Reference: reference, Component: g.componentOf(k)}
		}

		mapping := IdentityMapping()
		for _, hop := range path.Hops() {
			t, ok := g.Edge(hop.From, hop.To)
			if !ok {
				return nil, fmt.Errorf("compute poses: %d-%d is not a direct edge", hop.From, hop.To)
			}
			mapping = Compose(mapping, t.Mapping)
		}

		origin, ok := offsets.Get(reference, k)
		if !ok {
			return nil, fmt.Errorf("compute poses: offset(%d,%d) unknown", reference, k)
		}
		poses[k] = Pose{Mapping: mapping, Origin: origin}
	}
	return poses, nil
}
