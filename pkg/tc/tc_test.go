package tc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTC_Ipv4ToU32_ParsesDottedQuad(t *testing.T) {
	t.Parallel()

	val, mask, err := ipv4ToU32("10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, uint32(0xFFFFFFFF), mask)
	require.Equal(t, uint32(10)<<24|1, val)
}

func TestTC_Ipv4ToU32_StripsCIDRSuffix(t *testing.T) {
	t.Parallel()

	val, _, err := ipv4ToU32("10.0.0.1/24")
	require.NoError(t, err)
	require.Equal(t, uint32(10)<<24|1, val)
}

func TestTC_Ipv4ToU32_RejectsIPv6(t *testing.T) {
	t.Parallel()

	_, _, err := ipv4ToU32("fd00::1")
	require.Error(t, err)
}

func TestTC_Ipv4ToU32_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := ipv4ToU32("not-an-ip")
	require.Error(t, err)
}

func TestTC_MbpsToBytesPerSec_ConvertsMegabitsToBytes(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(12_500_000), mbpsToBytesPerSec(100))
}

type fakeNamespaceEntrant struct {
	entered []string
	fail    bool
}

func (f *fakeNamespaceEntrant) WithNamespace(node string, fn func() error) error {
	f.entered = append(f.entered, node)
	if f.fail {
		return errors.New("namespace entry failed")
	}
	return fn()
}

func TestTC_Driver_ApplyPointToPoint_PropagatesNamespaceError(t *testing.T) {
	t.Parallel()

	ns := &fakeNamespaceEntrant{fail: true}
	d := NewDriver(ns)

	err := d.ApplyPointToPoint("rover", "wlan0", LinkShape{DelayMs: 5})
	require.Error(t, err)
	require.Equal(t, []string{"rover"}, ns.entered)
}

func TestTC_Driver_ClearPointToPoint_EntersCorrectNamespace(t *testing.T) {
	t.Parallel()

	ns := &fakeNamespaceEntrant{fail: true}
	d := NewDriver(ns)

	err := d.ClearPointToPoint("base-station", "eth0")
	require.Error(t, err)
	require.Equal(t, []string{"base-station"}, ns.entered)
}

func TestTC_Driver_ApplySharedBridge_EntersCorrectNamespace(t *testing.T) {
	t.Parallel()

	ns := &fakeNamespaceEntrant{fail: true}
	d := NewDriver(ns)

	err := d.ApplySharedBridge("relay", "br-wlan0", 100, []PeerShape{{ClassMinor: 10, DestIP: "10.0.0.2", RateMbps: 20}})
	require.Error(t, err)
	require.Equal(t, []string{"relay"}, ns.entered)
}
