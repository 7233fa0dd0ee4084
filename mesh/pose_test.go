package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPose_RoundTrip(t *testing.T) {
	p := Pose{Mapping: AxisMapping{{2, 1}, {0, -1}, {1, -1}}, Origin: V3(10, -20, 30)}
	local := V3(404, -588, -901)
	assert.Equal(t, local, p.ToLocal(p.ToReference(local)))
	assert.Equal(t, p.Origin, p.ToReference(Vec3{}))
	assert.Equal(t, local, IdentityPose().ToReference(local))
}

func TestComputePoses_AgreesWithHopMerge(t *testing.T) {
	clouds, g, paths := exampleGraphAndPaths(t)
	offsets, err := ComposeOffsets(g, paths)
	require.NoError(t, err)

	poses, err := ComputePoses(g, offsets, paths, 0)
	require.NoError(t, err)
	require.Len(t, poses, 5)
	assert.Equal(t, IdentityPose(), poses[0])

	set, err := MergeBeacons(clouds, g, offsets, paths, 0)
	require.NoError(t, err)

	for k, cloud := range clouds {
		for _, p := range cloud {
			ref := poses[k].ToReference(p)
			assert.True(t, set.Contains(ref), "scanner %d beacon %v maps to %v, not in merged set", k, p, ref)
		}
	}
	assert.Equal(t, V3(1105, -1205, 1229), poses[2].Origin)
}
