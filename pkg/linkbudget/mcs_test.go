package linkbudget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkbudget_MCSTable_SelectMCS_NoPriorSelectionPicksCandidateDirectly(t *testing.T) {
	t.Parallel()

	table := WiFi6Table()
	pos := table.SelectMCS(16, -1, 2)
	require.Equal(t, table.candidateIndex(16), pos)
}

func TestLinkbudget_MCSTable_SelectMCS_UpgradeRequiresHysteresisMargin(t *testing.T) {
	t.Parallel()

	table := WiFi6Table()
	currentPos := 2 // MinSNRdB 8
	candidate := table.candidateIndex(12)
	require.Greater(t, candidate, currentPos)

	// SNR of 12 only clears the candidate's own threshold (11) by 1dB, not
	// by the 3dB hysteresis required to upgrade.
	pos := table.SelectMCS(12, currentPos, 3)
	require.Equal(t, currentPos, pos, "should not upgrade without clearing hysteresis margin")

	pos = table.SelectMCS(12, currentPos, 1)
	require.Equal(t, candidate, pos, "should upgrade once the margin is cleared")
}

func TestLinkbudget_MCSTable_SelectMCS_DowngradeRequiresDroppingBelowCurrentThreshold(t *testing.T) {
	t.Parallel()

	table := WiFi6Table()
	currentPos := 5 // MinSNRdB 19

	// SNR below the current entry's own threshold (19) but not by more than
	// the hysteresis (down to 17): stay put.
	pos := table.SelectMCS(18, currentPos, 2)
	require.Equal(t, currentPos, pos)

	// SNR below current threshold minus hysteresis: downgrade.
	pos = table.SelectMCS(16, currentPos, 2)
	require.Less(t, pos, currentPos)
}

func TestLinkbudget_MCSTable_SelectMCS_BlockedUpgradeStaysAtCurrent(t *testing.T) {
	t.Parallel()

	table := WiFi6Table()
	pos := table.SelectMCS(9, 1, 2)
	require.Equal(t, 1, pos)
}

func TestLinkbudget_MCSTable_Lowest(t *testing.T) {
	t.Parallel()

	table := WiFi6Table()
	require.Equal(t, 0, table.Lowest().Index)
}

func TestLinkbudget_Registry_LookupAndRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, ok := r.Lookup("wifi6")
	require.True(t, ok)

	_, ok = r.Lookup("does-not-exist")
	require.False(t, ok)

	custom := MCSTable{Name: "custom", Entries: []MCSEntry{{Index: 0, Modulation: BPSK, CodeRate: 0.5, MinSNRdB: 0}}}
	r.Register(custom)
	got, ok := r.Lookup("custom")
	require.True(t, ok)
	require.Equal(t, "custom", got.Name)
}
