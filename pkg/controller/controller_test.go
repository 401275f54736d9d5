package controller

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/tc"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// newTestChannelServer spins up a real channelservice.State/Handlers pair
// behind an httptest server, backed by the free-space fallback tracer so no
// external scene solver is needed.
func newTestChannelServer(t *testing.T) (*channelservice.Client, func()) {
	t.Helper()

	state := channelservice.NewState(channelengine.NewFallbackRayTracer())
	handlers := channelservice.NewHandlers(state, zerolog.Nop(), nil)
	r := chi.NewRouter()
	handlers.Routes(r)

	srv := httptest.NewServer(r)
	client := channelservice.NewClient(srv.URL, 5*time.Second)
	return client, srv.Close
}

func wirelessTopology() *topology.Topology {
	return &topology.Topology{
		Name: "two-node-lab",
		Nodes: map[string]topology.Node{
			"rover": {
				Image: "wireless-node:latest",
				Interfaces: map[string]topology.Interface{
					"wlan0": {
						IPAddress: "10.0.0.1",
						Wireless: &topology.Wireless{
							Position:         topology.Position{X: 0, Y: 0, Z: 1},
							RFPowerDBm:       20,
							FrequencyGHz:     2.4,
							BandwidthMHz:     20,
							NoiseFigureDB:    7,
							RxSensitivityDBm: -85,
							Modulation:       "qpsk",
							FECType:          "ldpc",
							FECCodeRate:      0.5,
							PacketSizeBits:   1500,
						},
					},
				},
			},
			"base": {
				Image: "wireless-node:latest",
				Interfaces: map[string]topology.Interface{
					"wlan0": {
						IPAddress: "10.0.0.2",
						Wireless: &topology.Wireless{
							Position:         topology.Position{X: 50, Y: 0, Z: 1},
							RFPowerDBm:       20,
							FrequencyGHz:     2.4,
							BandwidthMHz:     20,
							NoiseFigureDB:    7,
							RxSensitivityDBm: -85,
							Modulation:       "qpsk",
							FECType:          "ldpc",
							FECCodeRate:      0.5,
							PacketSizeBits:   1500,
						},
					},
				},
			},
		},
		Links: []topology.Link{
			{A: topology.Endpoint{Node: "rover", Interface: "wlan0"}, B: topology.Endpoint{Node: "base", Interface: "wlan0"}},
		},
	}
}

type fakeNodeAdapter struct {
	deployed  bool
	destroyed bool
	failOn    string
}

func (f *fakeNodeAdapter) Deploy(ctx context.Context, t *topology.Topology) error {
	if f.failOn == "deploy" {
		return errDeployFailed
	}
	f.deployed = true
	return nil
}

func (f *fakeNodeAdapter) Destroy(ctx context.Context, t *topology.Topology) error {
	f.destroyed = true
	return nil
}

var errDeployFailed = &testError{"deploy failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

type fakeShapeDriver struct {
	applied []string
	cleared []string
}

func (f *fakeShapeDriver) ApplyPointToPoint(node, iface string, shape tc.LinkShape) error {
	f.applied = append(f.applied, node+"."+iface)
	return nil
}

func (f *fakeShapeDriver) ClearPointToPoint(node, iface string) error {
	f.cleared = append(f.cleared, node+"."+iface)
	return nil
}

func (f *fakeShapeDriver) ApplySharedBridge(node, iface string, totalMbps float64, peers []tc.PeerShape) error {
	return nil
}

func TestController_Deploy_ConvergesEveryLinkDirection(t *testing.T) {
	t.Parallel()

	client, closeSrv := newTestChannelServer(t)
	defer closeSrv()

	nodes := &fakeNodeAdapter{}
	shapes := &fakeShapeDriver{}
	c := New(Config{Nodes: nodes, Shapes: shapes, Channel: client, Log: zerolog.Nop()})

	err := c.Deploy(context.Background(), wirelessTopology())
	require.NoError(t, err)
	require.True(t, nodes.deployed)
	require.ElementsMatch(t, []string{"rover.wlan0", "base.wlan0"}, shapes.applied)
	require.Equal(t, StateCompleted, c.State())
}

func TestController_Deploy_FailsWhenNodeDeployFails(t *testing.T) {
	t.Parallel()

	client, closeSrv := newTestChannelServer(t)
	defer closeSrv()

	nodes := &fakeNodeAdapter{failOn: "deploy"}
	shapes := &fakeShapeDriver{}
	c := New(Config{Nodes: nodes, Shapes: shapes, Channel: client, Log: zerolog.Nop()})

	err := c.Deploy(context.Background(), wirelessTopology())
	require.Error(t, err)
	require.Equal(t, StateFailed, c.State())
}

func TestController_Teardown_ClearsEveryLinkAndDestroysNodes(t *testing.T) {
	t.Parallel()

	client, closeSrv := newTestChannelServer(t)
	defer closeSrv()

	nodes := &fakeNodeAdapter{}
	shapes := &fakeShapeDriver{}
	c := New(Config{Nodes: nodes, Shapes: shapes, Channel: client, Log: zerolog.Nop()})

	require.NoError(t, c.Deploy(context.Background(), wirelessTopology()))
	require.NoError(t, c.Teardown(context.Background()))

	require.True(t, nodes.destroyed)
	require.ElementsMatch(t, []string{"rover.wlan0", "base.wlan0"}, shapes.cleared)
	require.Equal(t, StateTeardown, c.State())
}

func TestController_Summary_ReflectsLastConvergedLinks(t *testing.T) {
	t.Parallel()

	client, closeSrv := newTestChannelServer(t)
	defer closeSrv()

	nodes := &fakeNodeAdapter{}
	shapes := &fakeShapeDriver{}
	c := New(Config{Nodes: nodes, Shapes: shapes, Channel: client, Log: zerolog.Nop()})

	start := time.Now()
	require.NoError(t, c.Deploy(context.Background(), wirelessTopology()))

	summary := c.Summary(start, nil)
	require.True(t, summary.Success)
	require.Len(t, summary.Links, 2)
}

func TestController_Deploy_AppliesFixedNetemInterfacesDirectly(t *testing.T) {
	t.Parallel()

	client, closeSrv := newTestChannelServer(t)
	defer closeSrv()

	top := &topology.Topology{
		Name: "wired-link",
		Nodes: map[string]topology.Node{
			"gw": {
				Image: "wireless-node:latest",
				Interfaces: map[string]topology.Interface{
					"eth0": {
						IPAddress:  "10.0.1.1",
						FixedNetem: &topology.FixedNetem{DelayMs: 5, JitterMs: 1, LossPercent: 0.5, RateMbps: 100},
					},
				},
			},
		},
	}

	nodes := &fakeNodeAdapter{}
	shapes := &fakeShapeDriver{}
	c := New(Config{Nodes: nodes, Shapes: shapes, Channel: client, Log: zerolog.Nop()})

	require.NoError(t, c.Deploy(context.Background(), top))
	require.ElementsMatch(t, []string{"gw.eth0"}, shapes.applied)

	summary := c.Summary(time.Now(), nil)
	require.Len(t, summary.Links, 1)
	require.Equal(t, "fixed:gw.eth0", summary.Links[0].LinkID)
	require.True(t, summary.Links[0].Viable)
	require.Equal(t, 100.0, summary.Links[0].RateMbps)

	require.NoError(t, c.Teardown(context.Background()))
	require.ElementsMatch(t, []string{"gw.eth0"}, shapes.cleared)
}

func TestState_String_CoversAllValues(t *testing.T) {
	t.Parallel()

	require.Equal(t, "PARSE", StateParse.String())
	require.Equal(t, "COMPLETED", StateCompleted.String())
	require.Equal(t, "UNKNOWN", State(999).String())
}
