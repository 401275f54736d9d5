package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

type fakeDestroyer struct {
	destroyed bool
	failWith  error
}

func (f *fakeDestroyer) Destroy(_ context.Context, _ *topology.Topology) error {
	f.destroyed = true
	return f.failWith
}

type fakeClearer struct {
	cleared  []string
	failOn   string
	failWith error
}

func (f *fakeClearer) ClearPointToPoint(node, iface string) error {
	if node+"."+iface == f.failOn {
		return f.failWith
	}
	f.cleared = append(f.cleared, node+"."+iface)
	return nil
}

func testTopology() *topology.Topology {
	return &topology.Topology{Name: "demo", Nodes: map[string]topology.Node{}}
}

func TestCleanup_CleanupAll_ClearsEveryEndpointThenDestroys(t *testing.T) {
	t.Parallel()

	destroyer := &fakeDestroyer{}
	clearer := &fakeClearer{}
	c := New(destroyer, clearer)

	err := c.CleanupAll(context.Background(), testTopology(), []LinkEndpoint{
		{Node: "rover", Interface: "wlan0"},
		{Node: "base", Interface: "wlan0"},
	})

	require.NoError(t, err)
	require.True(t, destroyer.destroyed)
	require.ElementsMatch(t, []string{"rover.wlan0", "base.wlan0"}, clearer.cleared)

	summary := c.GetSummary()
	require.Equal(t, 3, summary.TotalActions) // 2 clears + 1 destroy, each logged once on success
	require.Equal(t, 0, summary.Failed)
}

func TestCleanup_CleanupAll_ContinuesAfterShapeClearFailure(t *testing.T) {
	t.Parallel()

	destroyer := &fakeDestroyer{}
	clearer := &fakeClearer{failOn: "rover.wlan0", failWith: errors.New("qdisc busy")}
	c := New(destroyer, clearer)

	err := c.CleanupAll(context.Background(), testTopology(), []LinkEndpoint{
		{Node: "rover", Interface: "wlan0"},
		{Node: "base", Interface: "wlan0"},
	})

	require.Error(t, err)
	require.True(t, destroyer.destroyed) // node teardown still proceeds
	require.Equal(t, []string{"base.wlan0"}, clearer.cleared)
}

func TestCleanup_CleanupAll_ReturnsDestroyError(t *testing.T) {
	t.Parallel()

	destroyer := &fakeDestroyer{failWith: errors.New("docker daemon unreachable")}
	clearer := &fakeClearer{}
	c := New(destroyer, clearer)

	err := c.CleanupAll(context.Background(), testTopology(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "docker daemon unreachable")
}

func TestCleanup_GetAuditLog_RecordsEveryStep(t *testing.T) {
	t.Parallel()

	c := New(&fakeDestroyer{}, &fakeClearer{})
	_ = c.CleanupAll(context.Background(), testTopology(), []LinkEndpoint{{Node: "rover", Interface: "wlan0"}})

	log := c.GetAuditLog()
	require.Len(t, log, 2)
	require.Equal(t, "clear_shape", log[0].Action)
	require.Equal(t, "destroy_nodes", log[1].Action)
}

func TestCleanup_SummaryString_FormatsCounts(t *testing.T) {
	t.Parallel()

	s := Summary{TotalActions: 5, Succeeded: 4, Failed: 1}
	require.Equal(t, "Cleanup Summary: 5 total actions, 4 succeeded, 1 failed", s.String())
}
