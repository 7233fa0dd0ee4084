package mesh

import (
	"fmt"
	"strings"
)

// AxisBinding sends one source axis to Target, scaled by Sign (+1 or -1)
type AxisBinding struct {
	Target int `json:"target"`
	Sign   int `json:"sign"`
}

// AxisMapping is an axis-aligned orientation change between two scanner frames.
// Entry i means "source axis i becomes target axis m[i].Target times m[i].Sign".
type AxisMapping [3]AxisBinding

var axisNames = [3]string{"x", "y", "z"}

// IdentityMapping leaves every axis in place
func IdentityMapping() AxisMapping {
	return AxisMapping{{0, 1}, {1, 1}, {2, 1}}
}

// ApplyMapping maps v from the source frame into the target frame of m
func ApplyMapping(v Vec3, m AxisMapping) Vec3 {
	var out Vec3
	for i, b := range m {
		out = out.SetAxis(b.Target, v.Axis(i)*int64(b.Sign))
	}
	return out
}

// Valid reports whether m is a bijection over the three axes with unit signs
func (m AxisMapping) Valid() bool {
	var used [3]bool
	for _, b := range m {
		if b.Target < 0 || b.Target > 2 || used[b.Target] {
			return false
		}
		if b.Sign != 1 && b.Sign != -1 {
			return false
		}
		used[b.Target] = true
	}
	return true
}

// Determinant of the signed permutation matrix: +1 for a rotation, -1 for a reflection.
// Returns 0 when m is not Valid.
func (m AxisMapping) Determinant() int {
	if !m.Valid() {
		return 0
	}
	det := 1
	for i := 0; i < 3; i++ {
		det *= m[i].Sign
		for j := i + 1; j < 3; j++ {
			if m[i].Target > m[j].Target {
				det = -det
			}
		}
	}
	return det
}

// IsRotation reports whether m is one of the 24 proper axis-aligned rotations
func (m AxisMapping) IsRotation() bool {
	return m.Determinant() == 1
}

// Inverse returns the mapping that undoes m
func (m AxisMapping) Inverse() AxisMapping {
	var inv AxisMapping
	for i, b := range m {
		inv[b.Target] = AxisBinding{Target: i, Sign: b.Sign}
	}
	return inv
}

// Compose returns the mapping equivalent to applying first and then second
func Compose(first, second AxisMapping) AxisMapping {
	var out AxisMapping
	for i, b := range first {
		next := second[b.Target]
		out[i] = AxisBinding{Target: next.Target, Sign: b.Sign * next.Sign}
	}
	return out
}

// Orientations lists the 24 proper axis-aligned rotations
func Orientations() []AxisMapping {
	perms := [6][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	signs := [2]int{1, -1}

	out := make([]AxisMapping, 0, 24)
	for _, p := range perms {
		for _, sx := range signs {
			for _, sy := range signs {
				for _, sz := range signs {
					m := AxisMapping{{p[0], sx}, {p[1], sy}, {p[2], sz}}
					if m.IsRotation() {
						out = append(out, m)
					}
				}
			}
		}
	}
	return out
}

// String renders m as e.g. "x->-z y->+x z->-y"
func (m AxisMapping) String() string {
	parts := make([]string, 3)
	for i, b := range m {
		sign := "+"
		if b.Sign < 0 {
			sign = "-"
		}
		target := "?"
		if b.Target >= 0 && b.Target <= 2 {
			target = axisNames[b.Target]
		}
		parts[i] = fmt.Sprintf("%s->%s%s", axisNames[i], sign, target)
	}
	return strings.Join(parts, " ")
}
