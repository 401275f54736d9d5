// Package tc applies the channel service's computed netem parameters to
// live Linux interfaces: delay/jitter/loss via a netem qdisc, rate limiting
// via a child token-bucket-filter qdisc, or, for a shared broadcast domain,
// per-peer HTB classes on the host-side bridge ports.
package tc

import (
	"fmt"

	"github.com/vishvananda/netlink"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
)

const (
	rootHandleMajor = 1
	tbfHandleMajor  = 2
	microsecond     = 1000

	// tbfBurstSeconds/tbfLatencySeconds follow spec's sizing: a burst budget
	// of roughly 4ms of line rate and a 50ms latency tolerance, both scaled
	// from the computed rate rather than a fixed byte count.
	tbfBurstSeconds   = 0.004
	tbfLatencySeconds = 0.050
)

// LinkShape is the fully-resolved set of impairments to apply to one
// interface, derived from a channelservice.NetemParams result.
type LinkShape struct {
	DelayMs     float64
	JitterMs    float64
	LossPercent float64
	RateMbps    float64
}

// ApplyNetem replaces any existing qdisc on iface with a netem/TBF chain
// reflecting shape: netem as the root qdisc for delay/jitter/loss, a TBF
// child for rate limiting. Call must already be running inside the target
// network namespace (see pkg/runtime.Adapter.Namespace).
func ApplyNetem(ifaceName string, shape LinkShape) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return classify.TC(fmt.Errorf("find interface %s: %w", ifaceName, err))
	}

	if err := clearRootQdisc(link); err != nil {
		return classify.TC(err)
	}

	netemQdisc := newNetemQdisc(link.Attrs().Index, netlink.HANDLE_ROOT, netlink.MakeHandle(rootHandleMajor, 0), shape)
	if err := netlink.QdiscAdd(netemQdisc); err != nil {
		return classify.TC(fmt.Errorf("add netem qdisc on %s: %w", ifaceName, err))
	}

	if shape.RateMbps <= 0 {
		return nil
	}

	rateBytesPerSec := mbpsToBytesPerSec(shape.RateMbps)
	tbf := &netlink.Tbf{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.MakeHandle(rootHandleMajor, 0),
			Handle:    netlink.MakeHandle(tbfHandleMajor, 0),
		},
		Rate:   rateBytesPerSec,
		Buffer: uint64(float64(rateBytesPerSec) * tbfBurstSeconds),
		Limit:  uint64(float64(rateBytesPerSec) * tbfLatencySeconds),
	}
	if err := netlink.QdiscAdd(tbf); err != nil {
		return classify.TC(fmt.Errorf("add tbf qdisc on %s: %w", ifaceName, err))
	}
	return nil
}

// newNetemQdisc builds (without installing) a netem qdisc on linkIndex at
// parent/handle reflecting shape's delay/jitter/loss. Shared by ApplyNetem's
// root qdisc and ApplyHTB's per-destination leaves.
func newNetemQdisc(linkIndex int, parent, handle uint32, shape LinkShape) netlink.Qdisc {
	return netlink.NewNetem(
		netlink.QdiscAttrs{
			LinkIndex: linkIndex,
			Parent:    parent,
			Handle:    handle,
		},
		netlink.NetemQdiscAttrs{
			Latency: uint32(shape.DelayMs * microsecond),
			Jitter:  uint32(shape.JitterMs * microsecond),
			Loss:    float32(shape.LossPercent),
		},
	)
}

// RemoveNetem tears down every qdisc previously installed by ApplyNetem.
func RemoveNetem(ifaceName string) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return classify.TC(fmt.Errorf("find interface %s: %w", ifaceName, err))
	}
	return classify.TC(clearRootQdisc(link))
}

func clearRootQdisc(link netlink.Link) error {
	qdiscs, err := netlink.QdiscList(link)
	if err != nil {
		return fmt.Errorf("list qdiscs on %s: %w", link.Attrs().Name, err)
	}
	for _, q := range qdiscs {
		if q.Attrs().Parent == netlink.HANDLE_ROOT {
			if err := netlink.QdiscDel(q); err != nil {
				return fmt.Errorf("delete root qdisc on %s: %w", link.Attrs().Name, err)
			}
		}
	}
	return nil
}

func mbpsToBytesPerSec(mbps float64) uint64 {
	return uint64(mbps * 1_000_000 / 8)
}
