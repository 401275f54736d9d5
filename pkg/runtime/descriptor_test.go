package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

func TestRuntime_HostVethName_StaysWithinIfnamsizLimit(t *testing.T) {
	t.Parallel()

	name := hostVethName("lab-with-a-very-long-prefix", "node-with-long-name", "wlan0")
	require.LessOrEqual(t, len(name), 14) // leaves room for the trailing 0/1 suffix
}

func TestRuntime_HostVethName_DeterministicForSameInputs(t *testing.T) {
	t.Parallel()

	a := hostVethName("lab", "rover", "wlan0")
	b := hostVethName("lab", "rover", "wlan0")
	require.Equal(t, a, b)
}

func TestRuntime_HostVethName_DiffersAcrossInterfaces(t *testing.T) {
	t.Parallel()

	a := hostVethName("lab", "rover", "wlan0")
	b := hostVethName("lab", "rover", "wlan1")
	require.NotEqual(t, a, b)
}

func TestRuntime_Truncate_ShortensLongStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "lab", truncate("laboratory", 3))
	require.Equal(t, "lab", truncate("lab", 3))
}

func TestRuntime_BuildNodeSpecs_OneInterfaceSpecPerInterface(t *testing.T) {
	t.Parallel()

	top := &topology.Topology{
		Prefix: "lab",
		Nodes: map[string]topology.Node{
			"rover": {
				Image: "wireless-node:latest",
				Interfaces: map[string]topology.Interface{
					"wlan0": {IPAddress: "10.0.0.1"},
				},
			},
		},
	}

	specs := BuildNodeSpecs(top)
	rover, ok := specs["rover"]
	require.True(t, ok)
	require.Equal(t, "wireless-node:latest", rover.Image)
	require.Len(t, rover.Interfaces, 1)
	require.Equal(t, "10.0.0.1", rover.Interfaces[0].IPAddress)
	require.NotEqual(t, rover.Interfaces[0].HostVeth, rover.Interfaces[0].PeerVeth)
}

func TestRuntime_FindInterface_MissingNodeReturnsFalse(t *testing.T) {
	t.Parallel()

	_, ok := findInterface(map[string]NodeSpec{}, "ghost", "wlan0")
	require.False(t, ok)
}

func TestRuntime_FindInterface_MissingInterfaceReturnsFalse(t *testing.T) {
	t.Parallel()

	specs := map[string]NodeSpec{
		"rover": {Name: "rover", Interfaces: []InterfaceSpec{{Name: "wlan0"}}},
	}
	_, ok := findInterface(specs, "rover", "wlan1")
	require.False(t, ok)
}

func TestRuntime_FindInterface_MatchFound(t *testing.T) {
	t.Parallel()

	specs := map[string]NodeSpec{
		"rover": {Name: "rover", Interfaces: []InterfaceSpec{{Name: "wlan0", IPAddress: "10.0.0.1"}}},
	}
	iface, ok := findInterface(specs, "rover", "wlan0")
	require.True(t, ok)
	require.Equal(t, "10.0.0.1", iface.IPAddress)
}

func TestRuntime_EnsureCIDR_AddsMaskToBareIPv4(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10.0.0.1/24", ensureCIDR("10.0.0.1"))
}

func TestRuntime_EnsureCIDR_AddsMaskToBareIPv6(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fd00::1/64", ensureCIDR("fd00::1"))
}

func TestRuntime_EnsureCIDR_LeavesExistingCIDRUntouched(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10.0.0.1/30", ensureCIDR("10.0.0.1/30"))
}
