package mesh

import "fmt"

// PairTransform relates two scanner frames (From, To).
// Mapping converts vectors of From's frame into To's frame; Offset is the
// origin of To expressed in From's frame.
type PairTransform struct {
	Mapping AxisMapping `json:"mapping"`
	Offset  Vec3        `json:"offset"`
	Support int         `json:"support"` // correspondences consistent with this transform
}

// Apply maps a point seen by To into From's frame
func (t PairTransform) Apply(p Vec3) Vec3 {
	return ApplyMapping(p, t.Mapping.Inverse()).Add(t.Offset)
}

// SolveTransform derives both directions of the transform between the
// scanners that produced corr (A side = From, B side = To).
//
// Pairs of correspondences are tried in order. A pair is skipped when its
// deltas cannot bind every axis exactly once, or when the result is not a
// proper rotation. The first candidate that every correspondence agrees with
// is returned; failing that, the candidate with the highest support.
func SolveTransform(corr []Correspondence) (forward, reverse PairTransform, err error) {
	if len(corr) < 2 {
		return PairTransform{}, PairTransform{}, fmt.Errorf("%w: have %d, need 2", ErrInsufficientCorrespondences, len(corr))
	}

	best := -1
	for i := 0; i < len(corr)-1; i++ {
		for j := i + 1; j < len(corr); j++ {
			fwd, rev, ok := solvePair(corr[i], corr[j])
			if !ok {
				continue
			}
			fwd.Support = countSupport(corr, fwd)
			rev.Support = fwd.Support
			if fwd.Support == len(corr) {
				return fwd, rev, nil
			}
			if fwd.Support > best {
				best = fwd.Support
				forward, reverse = fwd, rev
			}
		}
	}

	if best < 0 {
		return PairTransform{}, PairTransform{}, fmt.Errorf("%w: no correspondence pair among %d binds all axes", ErrAmbiguousAxisMapping, len(corr))
	}
	return forward, reverse, nil
}

// solvePair binds axes from the displacement between two correspondences
func solvePair(c0, c1 Correspondence) (forward, reverse PairTransform, ok bool) {
	deltaA := c1.A.Sub(c0.A)
	deltaB := c1.B.Sub(c0.B)

	var mapping, inverse AxisMapping
	var boundA, boundB [3]int

	for i := 0; i < 3; i++ {
		da := deltaA.Axis(i)
		if da == 0 {
			return PairTransform{}, PairTransform{}, false
		}
		for j := 0; j < 3; j++ {
			db := deltaB.Axis(j)
			if abs64(da) != abs64(db) {
				continue
			}
			sign := sign64(da) * sign64(db)
			mapping[i] = AxisBinding{Target: j, Sign: sign}
			inverse[j] = AxisBinding{Target: i, Sign: sign}
			boundA[i]++
			boundB[j]++
		}
	}

	for k := 0; k < 3; k++ {
		if boundA[k] != 1 || boundB[k] != 1 {
			return PairTransform{}, PairTransform{}, false
		}
	}
	if !mapping.IsRotation() || mapping.Inverse() != inverse {
		return PairTransform{}, PairTransform{}, false
	}

	// Origin of B in A's frame: a0 = R(b0) + origin
	forward = PairTransform{
		Mapping: mapping,
		Offset:  c0.A.Sub(ApplyMapping(c0.B, inverse)),
	}
	reverse = PairTransform{
		Mapping: inverse,
		Offset:  c0.B.Sub(ApplyMapping(c0.A, mapping)),
	}
	return forward, reverse, true
}

// countSupport counts correspondences whose B point lands on its A point
func countSupport(corr []Correspondence, t PairTransform) int {
	n := 0
	for _, c := range corr {
		if t.Apply(c.B) == c.A {
			n++
		}
	}
	return n
}
