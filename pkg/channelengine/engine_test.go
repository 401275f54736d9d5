package channelengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelengine_Engine_ComputeFreeSpaceWhenNoSceneLoaded(t *testing.T) {
	t.Parallel()

	e := NewEngine(NewFallbackRayTracer())
	tx := Geometry{X: 0, Y: 0, Z: 0}
	rx := Geometry{X: 100, Y: 0, Z: 0}

	res, err := e.Compute(2.4e9, 20e6, tx, rx)
	require.NoError(t, err)
	require.False(t, e.HasScene(2.4e9))
	require.InDelta(t, 100.0, res.DistanceM, 1e-9)
	require.Equal(t, LOS, res.DominantPathType)
	require.Greater(t, res.PathLossDB, 0.0)
}

func TestChannelengine_Engine_LoadSceneIsIdempotentPerFileAndFrequency(t *testing.T) {
	t.Parallel()

	e := NewEngine(NewFallbackRayTracer())
	require.NoError(t, e.LoadScene("scene.xml", 2.4e9, 20e6))
	require.True(t, e.HasScene(2.4e9))
	require.NoError(t, e.LoadScene("scene.xml", 2.4e9, 20e6))
}

func TestChannelengine_Engine_ComputeUsesRayTracerWhenSceneLoaded(t *testing.T) {
	t.Parallel()

	e := NewEngine(NewFallbackRayTracer())
	require.NoError(t, e.LoadScene("scene.xml", 5.8e9, 40e6))

	tx := Geometry{X: 0, Y: 0, Z: 0}
	rx := Geometry{X: 50, Y: 0, Z: 0}
	res, err := e.Compute(5.8e9, 40e6, tx, rx)
	require.NoError(t, err)
	require.Equal(t, 1, res.NumPaths)
	require.Len(t, res.Paths, 1)
}

func TestChannelengine_RMSDelaySpread_SinglePathIsZero(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.0, rmsDelaySpread([]Path{{AmplitudeReal: 1, DelayNs: 5}}))
}

func TestChannelengine_RMSDelaySpread_MultiPathIsPositive(t *testing.T) {
	t.Parallel()

	paths := []Path{
		{AmplitudeReal: 1, DelayNs: 0},
		{AmplitudeReal: 0.5, DelayNs: 20},
	}
	require.Greater(t, rmsDelaySpread(paths), 0.0)
}

func TestChannelengine_Path_PowerDB(t *testing.T) {
	t.Parallel()

	p := Path{AmplitudeReal: 1, AmplitudeImag: 0}
	require.InDelta(t, 0.0, p.PowerDB(), 1e-9)
}

func TestChannelengine_Result_Degenerate(t *testing.T) {
	t.Parallel()

	require.True(t, Result{PathLossDB: degeneratePathLossDB}.Degenerate())
	require.False(t, Result{PathLossDB: 60, NumPaths: 1}.Degenerate())
}
