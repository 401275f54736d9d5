package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

func TestMac_KindOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, None, KindOf(&topology.Wireless{}))
	require.Equal(t, CSMA, KindOf(&topology.Wireless{CSMA: &topology.CSMAConfig{}}))
	require.Equal(t, TDMA, KindOf(&topology.Wireless{TDMA: &topology.TDMAConfig{}}))
}

func TestMac_TxProbability_NoneAlwaysOne(t *testing.T) {
	t.Parallel()
	got := TxProbability(None, 2.4e9, -85, Endpoint{}, Endpoint{})
	require.Equal(t, 1.0, got)
}

func TestMac_CSMA_NearInterfererDefersToZero(t *testing.T) {
	t.Parallel()

	receiver := Endpoint{X: 0, Y: 0, Z: 0}
	interferer := Endpoint{X: 1, Y: 0, Z: 0, TxPowerDBm: 20, CSMA: &topology.CSMAConfig{}}

	got := TxProbability(CSMA, 2.4e9, -85, receiver, interferer)
	require.Equal(t, 0.0, got)
}

func TestMac_CSMA_HiddenNodeUsesTrafficLoad(t *testing.T) {
	t.Parallel()

	cfg := &topology.CSMAConfig{TrafficLoad: 0.4}
	receiver := Endpoint{X: 10000, Y: 0, Z: 0}
	interferer := Endpoint{X: 0, Y: 0, Z: 0, TxPowerDBm: 0, CSMA: cfg}

	got := TxProbability(CSMA, 2.4e9, -85, receiver, interferer)
	require.Equal(t, 0.4, got)
}

func TestMac_TDMA_FixedModeDisjointSlotsNoInterference(t *testing.T) {
	t.Parallel()

	receiver := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "fixed", SlotMap: []int{0, 1}}}
	interferer := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "fixed", SlotMap: []int{2, 3}}}

	got := TxProbability(TDMA, 2.4e9, -85, receiver, interferer)
	require.Equal(t, 0.0, got)
}

func TestMac_TDMA_FixedModeOverlappingSlots(t *testing.T) {
	t.Parallel()

	receiver := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "fixed", SlotMap: []int{0, 1}}}
	interferer := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "fixed", SlotMap: []int{1, 2}}}

	got := TxProbability(TDMA, 2.4e9, -85, receiver, interferer)
	require.Equal(t, 1.0, got)
}

func TestMac_TDMA_RandomModeUsesOwnershipProduct(t *testing.T) {
	t.Parallel()

	receiver := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "random", SlotOwnershipProbability: 0.5}}
	interferer := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "random", SlotOwnershipProbability: 0.25}}

	got := TxProbability(TDMA, 2.4e9, -85, receiver, interferer)
	require.InDelta(t, 0.125, got, 1e-9)
}

func TestMac_TDMA_RandomModeDefaultsToInverseNumSlots(t *testing.T) {
	t.Parallel()

	receiver := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "distributed", NumSlots: 4}}
	interferer := Endpoint{TDMA: &topology.TDMAConfig{SlotAssignmentMode: "distributed", NumSlots: 2}}

	got := TxProbability(TDMA, 2.4e9, -85, receiver, interferer)
	require.InDelta(t, 0.125, got, 1e-9)
}

func TestMac_ResolveRoundRobinSlot(t *testing.T) {
	t.Parallel()

	cfg := &topology.TDMAConfig{NumSlots: 3}
	require.Equal(t, []int{0}, ResolveRoundRobinSlot(cfg, 0))
	require.Equal(t, []int{1}, ResolveRoundRobinSlot(cfg, 4))
}
