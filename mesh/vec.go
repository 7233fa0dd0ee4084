package mesh

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vec3 is an integer 3D coordinate in some scanner's frame
type Vec3 struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
	Z int64 `json:"z"`
}

// V3 is shorthand for building a Vec3
func V3(x, y, z int64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Neg returns -v
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Axis returns the component for axis 0 (x), 1 (y) or 2 (z).
// Any other index panics, the same as indexing past the end of an array.
func (v Vec3) Axis(i int) int64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("mesh: axis index out of range: %d", i))
}

// SetAxis returns a copy of v with axis i replaced by value
func (v Vec3) SetAxis(i int, value int64) Vec3 {
	switch i {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	case 2:
		v.Z = value
	default:
		panic(fmt.Sprintf("mesh: axis index out of range: %d", i))
	}
	return v
}

// Less orders vectors lexicographically by X, then Y, then Z
func (v Vec3) Less(o Vec3) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Y != o.Y {
		return v.Y < o.Y
	}
	return v.Z < o.Z
}

// Compare returns -1, 0 or +1 following Less, for use with slices.SortFunc
func (v Vec3) Compare(o Vec3) int {
	switch {
	case v == o:
		return 0
	case v.Less(o):
		return -1
	default:
		return 1
	}
}

// NormL1 returns |x| + |y| + |z|
func (v Vec3) NormL1() int64 {
	return abs64(v.X) + abs64(v.Y) + abs64(v.Z)
}

// DistanceSquared returns the exact squared Euclidean distance to o
func (v Vec3) DistanceSquared(o Vec3) int64 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// DistanceL2 returns the Euclidean distance to o
func (v Vec3) DistanceL2(o Vec3) float64 {
	return math.Sqrt(float64(v.DistanceSquared(o)))
}

// String formats the vector as "x,y,z", the same form ParseVec3 accepts
func (v Vec3) String() string {
	return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z)
}

// ManhattanDistance returns the L1 distance between a and b
func ManhattanDistance(a, b Vec3) int64 {
	return a.Sub(b).NormL1()
}

// ParseVec3 parses a "x,y,z" triple of signed integers
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
	}

	var coords [3]int64
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("parsing coordinate %d: %w", i, err)
		}
		coords[i] = n
	}

	return Vec3{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func sign64(n int64) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
