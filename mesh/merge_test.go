package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBeacons_ReferenceReport(t *testing.T) {
	clouds, g, paths := exampleGraphAndPaths(t)
	offsets, err := ComposeOffsets(g, paths)
	require.NoError(t, err)

	set, err := MergeBeacons(clouds, g, offsets, paths, 0)
	require.NoError(t, err)
	assert.Equal(t, 79, set.Len())

	for _, p := range clouds[0] {
		assert.True(t, set.Contains(p), "reference beacon %v must be kept verbatim", p)
	}

	// Seen by scanners 0 and 1 of the reference report
	assert.Equal(t, []int{0, 1}, set.Observers(V3(-618, -824, -621)))
	assert.Equal(t, []int{0, 1, 2, 4}, set.Observers(V3(459, -707, 401)))
	assert.Equal(t, []int{1, 3, 4}, set.Observers(V3(-739, -1745, 668)))
	assert.Equal(t, []int{2, 4}, set.Observers(V3(456, -540, 1869)))
}

func TestMergeBeacons_Disconnected(t *testing.T) {
	clouds := []PointCloud{{V3(1, 2, 3)}, {V3(4, 5, 6)}}
	g := NewTransformGraph(2)

	_, err := MergeBeacons(clouds, g, NewOffsetTable(g), map[int]Path{}, 0)
	assert.True(t, errors.Is(err, ErrDisconnectedSensor))
}

func TestBeaconSet(t *testing.T) {
	s := NewBeaconSet()
	s.Add(V3(2, 0, 0), 3)
	s.Add(V3(1, 0, 0), 1)
	s.Add(V3(2, 0, 0), 0)
	s.Add(V3(2, 0, 0), 3)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Vec3{V3(1, 0, 0), V3(2, 0, 0)}, s.Sorted())
	assert.Equal(t, []int{0, 3}, s.Observers(V3(2, 0, 0)))
	assert.False(t, s.Contains(V3(9, 9, 9)))
	assert.Nil(t, s.Observers(V3(9, 9, 9)))
}

func TestOriginsAndMaxManhattan(t *testing.T) {
	_, g, paths := exampleGraphAndPaths(t)
	offsets, err := ComposeOffsets(g, paths)
	require.NoError(t, err)

	origins, err := Origins(offsets, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, V3(0, 0, 0), origins[0])
	assert.Equal(t, V3(1105, -1205, 1229), origins[2])
	assert.Equal(t, int64(3621), MaxManhattan(origins))
}

func TestMaxManhattan_Small(t *testing.T) {
	assert.Equal(t, int64(0), MaxManhattan(nil))
	assert.Equal(t, int64(0), MaxManhattan([]Vec3{V3(5, 5, 5)}))
	assert.Equal(t, int64(6), MaxManhattan([]Vec3{V3(0, 0, 0), V3(1, -2, 3)}))
}

func TestOrigins_MissingOffset(t *testing.T) {
	_, err := Origins(OffsetTable{}, 2, 0)
	assert.Error(t, err)
}
