package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
name: test-lab
scene:
  file: scene.xml
nodes:
  rover:
    kind: container
    image: wireless-node:latest
    interfaces:
      wlan0:
        ip_address: 10.0.0.1
        wireless:
          rf_power_dbm: ${POWER}
          frequency_ghz: 2.4
          bandwidth_mhz: 20
          noise_figure_db: 7
          rx_sensitivity_dbm: -85
          antenna:
            gain_dbi: 3
          modulation: qpsk
          fec_type: ldpc
          fec_code_rate: 0.5
          packet_size_bits: 1500
`

func TestParser_Parse_SubstitutesParserVariables(t *testing.T) {
	t.Parallel()

	p := New(map[string]string{"POWER": "15"})
	top, err := p.Parse([]byte(minimalYAML))
	require.NoError(t, err)
	require.Equal(t, "test-lab", top.Name)
	require.Equal(t, 15.0, top.Nodes["rover"].Interfaces["wlan0"].Wireless.RFPowerDBm)
}

func TestParser_Parse_FallsBackToEnvironmentVariable(t *testing.T) {
	t.Setenv("POWER", "12")
	p := New(nil)
	top, err := p.Parse([]byte(minimalYAML))
	require.NoError(t, err)
	require.Equal(t, 12.0, top.Nodes["rover"].Interfaces["wlan0"].Wireless.RFPowerDBm)
}

func TestParser_Parse_MissingNameRejected(t *testing.T) {
	t.Parallel()

	p := New(map[string]string{"POWER": "10"})
	_, err := p.Parse([]byte(`
scene:
  file: scene.xml
nodes:
  rover:
    kind: container
    image: img
    interfaces: {}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "name is required")
}

func TestParser_Parse_SharedBridgeAndLinksMutuallyExclusive(t *testing.T) {
	t.Parallel()

	p := New(nil)
	_, err := p.Parse([]byte(`
name: test
scene:
  file: scene.xml
shared_bridge:
  enabled: true
  name: br0
  nodes: [a]
  interface_name: wlan0
links:
  - a: {node: a, interface: wlan0}
    b: {node: b, interface: wlan0}
nodes:
  a:
    kind: container
    image: img
    interfaces: {}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "mutually exclusive")
}

func TestParser_ParseOverrides_ParsesKeyValuePairs(t *testing.T) {
	t.Parallel()

	p := New(nil)
	overrides, err := p.ParseOverrides([]string{"rover.wlan0.rf_power_dbm=20"})
	require.NoError(t, err)
	require.Equal(t, "20", overrides["rover.wlan0.rf_power_dbm"])
}

func TestParser_ParseOverrides_RejectsMissingEquals(t *testing.T) {
	t.Parallel()

	p := New(nil)
	_, err := p.ParseOverrides([]string{"invalid"})
	require.Error(t, err)
}

func TestParser_ApplyOverrides_SetsWirelessField(t *testing.T) {
	t.Parallel()

	p := New(map[string]string{"POWER": "10"})
	top, err := p.Parse([]byte(minimalYAML))
	require.NoError(t, err)

	err = ApplyOverrides(top, map[string]string{"rover.wlan0.rf_power_dbm": "25"})
	require.NoError(t, err)
	require.Equal(t, 25.0, top.Nodes["rover"].Interfaces["wlan0"].Wireless.RFPowerDBm)
}

func TestParser_ApplyOverrides_RejectsNonWirelessInterface(t *testing.T) {
	t.Parallel()

	top, err := New(map[string]string{"POWER": "10"}).Parse([]byte(minimalYAML))
	require.NoError(t, err)
	n := top.Nodes["rover"]
	n.Interfaces["eth0"] = n.Interfaces["wlan0"]
	fixed := n.Interfaces["eth0"]
	fixed.Wireless = nil
	n.Interfaces["eth0"] = fixed
	top.Nodes["rover"] = n

	err = ApplyOverrides(top, map[string]string{"rover.eth0.rf_power_dbm": "25"})
	require.Error(t, err)
}

func TestParser_ApplyOverrides_UnsupportedFieldRejected(t *testing.T) {
	t.Parallel()

	top, err := New(map[string]string{"POWER": "10"}).Parse([]byte(minimalYAML))
	require.NoError(t, err)

	err = ApplyOverrides(top, map[string]string{"rover.wlan0.modulation": "64"})
	require.Error(t, err)
}
