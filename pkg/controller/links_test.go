package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

func TestLinks_BuildLinkPlans_ProducesBothDirections(t *testing.T) {
	t.Parallel()

	plans, err := BuildLinkPlans(wirelessTopology())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.Equal(t, "rover", plans[0].TxNode)
	require.Equal(t, "base", plans[1].TxNode)
}

func TestLinks_BuildLinkPlans_RejectsUndeclaredInterface(t *testing.T) {
	t.Parallel()

	top := wirelessTopology()
	top.Links[0].A.Interface = "missing"

	_, err := BuildLinkPlans(top)
	require.Error(t, err)
}

func TestLinks_BuildLinkPlans_SkipsFixedNetemInterfaces(t *testing.T) {
	t.Parallel()

	top := &topology.Topology{
		Nodes: map[string]topology.Node{
			"a": {Interfaces: map[string]topology.Interface{
				"eth0": {FixedNetem: &topology.FixedNetem{DelayMs: 5, RateMbps: 100}},
			}},
			"b": {Interfaces: map[string]topology.Interface{
				"eth0": {FixedNetem: &topology.FixedNetem{DelayMs: 5, RateMbps: 100}},
			}},
		},
		Links: []topology.Link{
			{A: topology.Endpoint{Node: "a", Interface: "eth0"}, B: topology.Endpoint{Node: "b", Interface: "eth0"}},
		},
	}

	plans, err := BuildLinkPlans(top)
	require.NoError(t, err)
	require.Empty(t, plans)
}

func TestLinks_BuildLinkPlans_RejectsMismatchedFrequencies(t *testing.T) {
	t.Parallel()

	top := wirelessTopology()
	n := top.Nodes["base"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.FrequencyGHz = 5.8
	n.Interfaces["wlan0"] = iface
	top.Nodes["base"] = n

	_, err := BuildLinkPlans(top)
	require.Error(t, err)
}

func TestLinks_BuildLinkPlans_UsesAdaptiveMCSWhenTableConfigured(t *testing.T) {
	t.Parallel()

	top := wirelessTopology()
	n := top.Nodes["rover"]
	iface := n.Interfaces["wlan0"]
	iface.Wireless.Modulation = ""
	iface.Wireless.MCSTable = "wifi6"
	n.Interfaces["wlan0"] = iface
	top.Nodes["rover"] = n

	plans, err := BuildLinkPlans(top)
	require.NoError(t, err)
	require.NotNil(t, plans[0].Request.Adaptive)
	require.Nil(t, plans[0].Request.Fixed)
	require.Equal(t, "wifi6", plans[0].Request.Adaptive.Table)
}
