package interference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
)

func TestInterference_ACLRdB_Piecewise(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, ACLRdB(5e6))
	require.Equal(t, 20.0, ACLRdB(15e6))
	require.Equal(t, 28.0, ACLRdB(25e6))
	require.Equal(t, 40.0, ACLRdB(35e6))
	require.Equal(t, 45.0, ACLRdB(100e6))
	require.Equal(t, 45.0, ACLRdB(-100e6), "rejection depends on absolute separation")
}

func TestInterference_Aggregate_NoInterferersLeavesInterferencePowerAtNegativeInfinity(t *testing.T) {
	t.Parallel()

	engine := NewEngine(channelengine.NewEngine(channelengine.NewFallbackRayTracer()))
	rx := channelengine.Geometry{}

	res, err := engine.Aggregate(rx, 2.4e9, 20e6, -60, -90, -85, nil)
	require.NoError(t, err)
	require.Equal(t, 0, res.NumActiveInterferers)
	require.True(t, math.IsInf(res.InterferencePowerDBm, -1))
}

func TestInterference_Aggregate_SkipsInactiveAndZeroProbabilityInterferers(t *testing.T) {
	t.Parallel()

	engine := NewEngine(channelengine.NewEngine(channelengine.NewFallbackRayTracer()))
	rx := channelengine.Geometry{X: 0, Y: 0, Z: 0}

	interferers := []Interferer{
		{ID: "inactive", Position: channelengine.Geometry{X: 10}, TxPowerDBm: 20, FrequencyHz: 2.4e9, Active: false, TxProbability: 1},
		{ID: "zero-prob", Position: channelengine.Geometry{X: 10}, TxPowerDBm: 20, FrequencyHz: 2.4e9, Active: true, TxProbability: 0},
	}

	res, err := engine.Aggregate(rx, 2.4e9, 20e6, -60, -90, -85, interferers)
	require.NoError(t, err)
	require.Equal(t, 0, res.NumActiveInterferers)
	require.Empty(t, res.Breakdown)
}

func TestInterference_Aggregate_CoChannelInterfererReducesSINR(t *testing.T) {
	t.Parallel()

	engine := NewEngine(channelengine.NewEngine(channelengine.NewFallbackRayTracer()))
	rx := channelengine.Geometry{X: 0, Y: 0, Z: 0}

	noInterferers, err := engine.Aggregate(rx, 2.4e9, 20e6, -60, -90, -85, nil)
	require.NoError(t, err)

	withInterferer, err := engine.Aggregate(rx, 2.4e9, 20e6, -60, -90, -85, []Interferer{
		{ID: "co-channel", Position: channelengine.Geometry{X: 5}, TxPowerDBm: 20, FrequencyHz: 2.4e9, Active: true, TxProbability: 1},
	})
	require.NoError(t, err)

	require.Equal(t, 1, withInterferer.NumActiveInterferers)
	require.Less(t, withInterferer.SINRdB, noInterferers.SINRdB)
}

func TestInterference_Aggregate_OrthogonalFrequencyInterfererBelowSensitivityIsSkipped(t *testing.T) {
	t.Parallel()

	engine := NewEngine(channelengine.NewEngine(channelengine.NewFallbackRayTracer()))
	rx := channelengine.Geometry{X: 0, Y: 0, Z: 0}

	res, err := engine.Aggregate(rx, 2.4e9, 20e6, -60, -90, -85, []Interferer{
		{ID: "far-freq", Position: channelengine.Geometry{X: 1000}, TxPowerDBm: -10, FrequencyHz: 2.4e9 + 100e6, Active: true, TxProbability: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.NumActiveInterferers)
}
