package mesh

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// loadExample parses testdata/example.txt, the five-scanner reference report
func loadExample(t *testing.T) []PointCloud {
	t.Helper()
	reports, err := ParseReportFile(filepath.Join("testdata", "example.txt"))
	require.NoError(t, err)
	require.Len(t, reports, 5)
	return Clouds(reports)
}

// randomBeacons returns n distinct beacons with coordinates in [-limit, limit]
func randomBeacons(rng *rand.Rand, n int, limit int64) []Vec3 {
	seen := make(map[Vec3]bool, n)
	out := make([]Vec3, 0, n)
	for len(out) < n {
		v := V3(rng.Int63n(2*limit+1)-limit, rng.Int63n(2*limit+1)-limit, rng.Int63n(2*limit+1)-limit)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// chainScenario places len(poses) scanners along a chain. Scanner k sees the
// reference-frame beacons world[k*step : k*step+window], so neighbours share
// window-step beacons and scanners further apart share none.
type chainScenario struct {
	world  []Vec3
	poses  []Pose
	clouds []PointCloud
}

func newChainScenario(t *testing.T, seed int64, poses []Pose, window, step int) chainScenario {
	t.Helper()
	require.Greater(t, window, step)

	rng := rand.New(rand.NewSource(seed))
	world := randomBeacons(rng, step*(len(poses)-1)+window, 1000)

	clouds := make([]PointCloud, len(poses))
	for k, pose := range poses {
		seen := world[k*step : k*step+window]
		cloud := make(PointCloud, len(seen))
		for i, w := range seen {
			cloud[i] = pose.ToLocal(w)
		}
		// Reports do not list beacons in any shared order
		rng.Shuffle(len(cloud), func(i, j int) { cloud[i], cloud[j] = cloud[j], cloud[i] })
		clouds[k] = cloud
	}
	return chainScenario{world: world, poses: poses, clouds: clouds}
}

// chainPoses returns n poses: identity for scanner 0, then a spread of
// orientations and origins
func chainPoses(n int) []Pose {
	orientations := Orientations()
	poses := []Pose{IdentityPose()}
	for k := 1; k < n; k++ {
		poses = append(poses, Pose{
			Mapping: orientations[(k*7)%len(orientations)],
			Origin:  V3(int64(k*1100), int64(-k*350), int64(k*90-400)),
		})
	}
	return poses
}
