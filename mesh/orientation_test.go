package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrientations(t *testing.T) {
	all := Orientations()
	require.Len(t, all, 24)

	seen := make(map[AxisMapping]bool)
	for _, m := range all {
		assert.True(t, m.Valid(), "%v should be valid", m)
		assert.True(t, m.IsRotation(), "%v should be a proper rotation", m)
		assert.False(t, seen[m], "%v listed twice", m)
		seen[m] = true
	}
	assert.True(t, seen[IdentityMapping()])
}

func TestApplyMapping(t *testing.T) {
	// x->-z y->+x z->-y
	m := AxisMapping{{Target: 2, Sign: -1}, {Target: 0, Sign: 1}, {Target: 1, Sign: -1}}
	assert.Equal(t, V3(2, -3, -1), ApplyMapping(V3(1, 2, 3), m))
	assert.Equal(t, "x->-z y->+x z->-y", m.String())
	assert.Equal(t, V3(1, 2, 3), ApplyMapping(V3(1, 2, 3), IdentityMapping()))
}

func TestAxisMapping_InverseRoundTrip(t *testing.T) {
	vectors := []Vec3{V3(1, 2, 3), V3(-404, 588, -901), V3(0, 0, 7)}
	for _, m := range Orientations() {
		inv := m.Inverse()
		assert.Equal(t, IdentityMapping(), Compose(m, inv), "%v", m)
		assert.Equal(t, m, inv.Inverse())
		for _, v := range vectors {
			assert.Equal(t, v, ApplyMapping(ApplyMapping(v, m), inv), "%v applied to %v", m, v)
		}
	}
}

func TestCompose(t *testing.T) {
	v := V3(5, -11, 17)
	all := Orientations()
	for _, a := range all {
		for _, b := range all {
			c := Compose(a, b)
			require.True(t, c.IsRotation())
			require.Equal(t, ApplyMapping(ApplyMapping(v, a), b), ApplyMapping(v, c))
		}
	}
}

func TestAxisMapping_Determinant(t *testing.T) {
	tests := []struct {
		name string
		m    AxisMapping
		want int
	}{
		{"identity", IdentityMapping(), 1},
		{"mirror x", AxisMapping{{0, -1}, {1, 1}, {2, 1}}, -1},
		{"swap x y", AxisMapping{{1, 1}, {0, 1}, {2, 1}}, -1},
		{"swap x y, flip z", AxisMapping{{1, 1}, {0, 1}, {2, -1}}, 1},
		{"repeated target", AxisMapping{{0, 1}, {0, 1}, {2, 1}}, 0},
		{"zero sign", AxisMapping{{0, 0}, {1, 1}, {2, 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Determinant())
			assert.Equal(t, tt.want == 1, tt.m.IsRotation())
			assert.Equal(t, tt.want != 0, tt.m.Valid())
		})
	}
}
