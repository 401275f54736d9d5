package linkbudget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkbudget_FSPLdB_GuardsZeroDistance(t *testing.T) {
	t.Parallel()

	normal := FSPLdB(100, 2.4e9)
	zero := FSPLdB(0, 2.4e9)

	require.Less(t, zero, normal, "a zero distance is floored at 1 mm, well inside the 100 m reference")
	require.False(t, math.IsInf(zero, 0))
	require.False(t, math.IsNaN(zero))
}

func TestLinkbudget_NoiseFloorDBm(t *testing.T) {
	t.Parallel()

	// -174 + 10*log10(20e6) + 7 = -174 + 73.0103 + 7
	got := NoiseFloorDBm(20e6, 7)
	require.InDelta(t, -93.99, got, 0.05)
}

func TestLinkbudget_SNRdB(t *testing.T) {
	t.Parallel()
	require.Equal(t, 20.0, SNRdB(-60, -80))
}

func TestLinkbudget_BER_MonotonicInSNR(t *testing.T) {
	t.Parallel()

	for _, mod := range []Modulation{BPSK, QPSK, QAM16, QAM64, QAM256} {
		low := BER(mod, dBToLinear(2))
		high := BER(mod, dBToLinear(20))
		require.Greaterf(t, low, high, "BER should decrease as SNR increases for %s", mod)
		require.GreaterOrEqual(t, low, 0.0)
		require.LessOrEqual(t, high, 0.5)
	}
}

func TestLinkbudget_BER_NonPositiveSNRIsWorstCase(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.5, BER(QPSK, 0))
	require.Equal(t, 0.5, BER(QPSK, -1))
}

func TestLinkbudget_PER_ClampedAndMonotonic(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, PER(0, 1500))
	require.InDelta(t, 1.0, PER(0.5, 1500), 1e-9)

	lowBits := PER(1e-4, 100)
	highBits := PER(1e-4, 10000)
	require.Less(t, lowBits, highBits)
}

func TestLinkbudget_PER_SmallBERLinearApproximation(t *testing.T) {
	t.Parallel()

	ber := 1e-13
	bits := 1000
	got := PER(ber, bits)
	require.InDelta(t, float64(bits)*ber, got, 1e-15)
}

func TestLinkbudget_CodingGainDB_ZeroForNone(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.0, CodingGainDB(FECNone, 0.5))
}

func TestLinkbudget_CodingGainDB_PeaksAtHalfRate(t *testing.T) {
	t.Parallel()

	atHalf := CodingGainDB(FECLDPC, 0.5)
	atExtreme := CodingGainDB(FECLDPC, 0.95)

	require.InDelta(t, 6.5, atHalf, 1e-9)
	require.Less(t, atExtreme, atHalf)
}

func TestLinkbudget_EffectiveRateMbps_ZeroWhenFullyErrored(t *testing.T) {
	t.Parallel()
	rate := EffectiveRateMbps(20e6, QAM64, 0.75, 1.0, 0)
	require.Equal(t, 0.0, rate)
}

func TestLinkbudget_EffectiveRateMbps_PositiveWhenViable(t *testing.T) {
	t.Parallel()
	rate := EffectiveRateMbps(20e6, QAM64, 0.75, 0.0, 0)
	require.Greater(t, rate, 0.0)
}

func TestLinkbudget_DefaultJitterPolicy_ZeroDelaySpreadIsZeroJitter(t *testing.T) {
	t.Parallel()
	require.Equal(t, 0.0, DefaultJitterPolicy(0, 3, 12))
}

func TestLinkbudget_DefaultJitterPolicy_ScalesWithMCSIndex(t *testing.T) {
	t.Parallel()

	lowIndex := DefaultJitterPolicy(200, 0, 12)
	highIndex := DefaultJitterPolicy(200, 11, 12)

	require.Greater(t, highIndex, lowIndex)
}
