package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

func validWireless() *topology.Wireless {
	gain := 3.0
	return &topology.Wireless{
		RFPowerDBm:       10,
		FrequencyGHz:     2.4,
		BandwidthMHz:     20,
		NoiseFigureDB:    7,
		RxSensitivityDBm: -85,
		Antenna:          topology.Antenna{GainDBi: &gain},
		Modulation:       "qpsk",
		FECType:          "ldpc",
		FECCodeRate:      0.5,
		PacketSizeBits:   1500,
	}
}

func baseTopology() *topology.Topology {
	return &topology.Topology{
		Name:  "test",
		Scene: topology.SceneRef{File: "scene.xml"},
		Nodes: map[string]topology.Node{
			"a": {Kind: "container", Image: "img", Interfaces: map[string]topology.Interface{
				"wlan0": {IPAddress: "10.0.0.1", Wireless: validWireless()},
			}},
			"b": {Kind: "container", Image: "img", Interfaces: map[string]topology.Interface{
				"wlan0": {IPAddress: "10.0.0.2", Wireless: validWireless()},
			}},
		},
		Links: []topology.Link{
			{A: topology.Endpoint{Node: "a", Interface: "wlan0"}, B: topology.Endpoint{Node: "b", Interface: "wlan0"}},
		},
	}
}

func TestValidator_Validate_ValidTopologyPasses(t *testing.T) {
	t.Parallel()

	v := New()
	err := v.Validate(baseTopology())
	require.NoError(t, err)
	require.False(t, v.HasErrors())
}

func TestValidator_Validate_EmptyNodesFails(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	top.Nodes = map[string]topology.Node{}

	v := New()
	err := v.Validate(top)
	require.Error(t, err)
	require.Contains(t, err.Error(), "topology_error")
}

func TestValidator_AntennaExclusion_BothPatternAndGainRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	gain := 3.0
	n := top.Nodes["a"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.Antenna = topology.Antenna{Pattern: "dipole", GainDBi: &gain}
	n.Interfaces["wlan0"] = iface
	top.Nodes["a"] = n

	v := New()
	require.Error(t, v.Validate(top))
	require.NotEmpty(t, v.Errors)
}

func TestValidator_AntennaExclusion_NeitherPatternNorGainRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	n := top.Nodes["a"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.Antenna = topology.Antenna{}
	n.Interfaces["wlan0"] = iface
	top.Nodes["a"] = n

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_FixedAdaptiveMCSMutualExclusion(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	n := top.Nodes["a"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.MCSTable = "wifi6" // modulation is already set in validWireless()
	n.Interfaces["wlan0"] = iface
	top.Nodes["a"] = n

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_RFPowerOutOfRangeRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	n := top.Nodes["a"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.RFPowerDBm = 100
	n.Interfaces["wlan0"] = iface
	top.Nodes["a"] = n

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_SharedBridge_MutuallyExclusiveWithLinks(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	top.SharedBridge = &topology.SharedBridge{
		Enabled:       true,
		Name:          "br0",
		Nodes:         []string{"a", "b"},
		InterfaceName: "wlan0",
	}

	v := New()
	err := v.Validate(top)
	require.Error(t, err)
	require.Contains(t, v.Report(), "mutually exclusive")
}

func TestValidator_SharedBridge_RequiresWirelessInterface(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	top.Links = nil
	n := top.Nodes["a"]
	n.Interfaces["wlan0"] = topology.Interface{IPAddress: "10.0.0.1", FixedNetem: &topology.FixedNetem{DelayMs: 1, RateMbps: 10}}
	top.Nodes["a"] = n
	top.SharedBridge = &topology.SharedBridge{Enabled: true, Name: "br0", Nodes: []string{"a", "b"}, InterfaceName: "wlan0"}

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_Links_UnknownInterfaceRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	top.Links = []topology.Link{
		{A: topology.Endpoint{Node: "a", Interface: "missing"}, B: topology.Endpoint{Node: "b", Interface: "wlan0"}},
	}

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_IPUniqueness_DuplicateRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	n := top.Nodes["b"]
	iface := n.Interfaces["wlan0"]
	iface.IPAddress = "10.0.0.1" // duplicates node a
	n.Interfaces["wlan0"] = iface
	top.Nodes["b"] = n

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_IPUniqueness_InvalidAddressRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	n := top.Nodes["a"]
	iface := n.Interfaces["wlan0"]
	iface.IPAddress = "not-an-ip"
	n.Interfaces["wlan0"] = iface
	top.Nodes["a"] = n

	v := New()
	require.Error(t, v.Validate(top))
}

func TestValidator_MACModelMixing_SameFrequencyRejected(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	na := top.Nodes["a"]
	ifaceA := na.Interfaces["wlan0"]
	ifaceA.Wireless.CSMA = &topology.CSMAConfig{}
	na.Interfaces["wlan0"] = ifaceA
	top.Nodes["a"] = na

	nb := top.Nodes["b"]
	ifaceB := nb.Interfaces["wlan0"]
	ifaceB.Wireless.TDMA = &topology.TDMAConfig{NumSlots: 4, SlotAssignmentMode: "fixed", SlotMap: []int{0}}
	nb.Interfaces["wlan0"] = ifaceB
	top.Nodes["b"] = nb

	v := New()
	err := v.Validate(top)
	require.Error(t, err)
	require.Contains(t, v.Report(), "mixed MAC models")
}

func TestValidator_MACModelMixing_DifferentFrequencyAllowed(t *testing.T) {
	t.Parallel()

	top := baseTopology()
	na := top.Nodes["a"]
	ifaceA := na.Interfaces["wlan0"]
	ifaceA.Wireless.CSMA = &topology.CSMAConfig{}
	na.Interfaces["wlan0"] = ifaceA
	top.Nodes["a"] = na

	nb := top.Nodes["b"]
	ifaceB := nb.Interfaces["wlan0"]
	ifaceB.Wireless.FrequencyGHz = 5.8
	ifaceB.Wireless.TDMA = &topology.TDMAConfig{NumSlots: 4, SlotAssignmentMode: "fixed", SlotMap: []int{0}}
	nb.Interfaces["wlan0"] = ifaceB
	top.Nodes["b"] = nb

	v := New()
	require.NoError(t, v.Validate(top))
}
