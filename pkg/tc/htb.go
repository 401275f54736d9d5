package tc

import (
	"fmt"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
)

const (
	htbRootHandle  = 1
	leafQdiscBase  = 100
	filterPriority = 1

	// broadcastClassMinor is the HTB class that unmatched (broadcast,
	// multicast, or filterless) traffic falls through to.
	broadcastClassMinor = 99
)

// PeerShape is one peer's per-destination shape on a shared bridge port:
// classMinor must be unique per peer on a given bridge interface.
type PeerShape struct {
	ClassMinor  uint16
	DestIP      string
	RateMbps    float64
	CeilMbps    float64
	DelayMs     float64
	JitterMs    float64
	LossPercent float64
}

// ApplyHTB installs an HTB root qdisc on ifaceName with one child class per
// peer (bandwidth-limited to RateMbps, bursting to CeilMbps) carrying a
// per-destination netem leaf for that peer's delay/jitter/loss, plus a
// broadcast-default class 1:99 for anything a filter doesn't match. Traffic
// is steered to each peer's class by a u32 filter matching its destination
// IP (flower would give O(1) lookup instead of u32's linear scan, but isn't
// used here — see addDestFilter). Used for the shared-broadcast-domain
// layout, where every node's bridge port carries traffic to multiple peers
// that the per-link netem chain can't distinguish between.
func ApplyHTB(ifaceName string, totalMbps float64, peers []PeerShape) error {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return classify.TC(fmt.Errorf("find interface %s: %w", ifaceName, err))
	}
	if err := clearRootQdisc(link); err != nil {
		return classify.TC(err)
	}
	linkIndex := link.Attrs().Index

	root := netlink.NewHtb(netlink.QdiscAttrs{
		LinkIndex: linkIndex,
		Parent:    netlink.HANDLE_ROOT,
		Handle:    netlink.MakeHandle(htbRootHandle, 0),
	})
	root.Defcls = broadcastClassMinor
	if err := netlink.QdiscAdd(root); err != nil {
		return classify.TC(fmt.Errorf("add htb root qdisc on %s: %w", ifaceName, err))
	}

	totalRate := mbpsToBytesPerSec(totalMbps)
	rootClass := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: linkIndex,
		Parent:    netlink.MakeHandle(htbRootHandle, 0),
		Handle:    netlink.MakeHandle(htbRootHandle, 1),
	}, netlink.HtbClassAttrs{
		Rate:    totalRate,
		Ceil:    totalRate,
		Buffer:  1514,
		Cbuffer: 1514,
	})
	if err := netlink.ClassAdd(rootClass); err != nil {
		return classify.TC(fmt.Errorf("add htb root class on %s: %w", ifaceName, err))
	}

	for i, peer := range peers {
		if err := addPeerClass(linkIndex, htbRootHandle, peer, totalRate); err != nil {
			return classify.TC(fmt.Errorf("add htb class for peer %s on %s: %w", peer.DestIP, ifaceName, err))
		}

		leaf := newNetemQdisc(linkIndex, netlink.MakeHandle(htbRootHandle, peer.ClassMinor),
			netlink.MakeHandle(leafQdiscBase+uint16(i), 0),
			LinkShape{DelayMs: peer.DelayMs, JitterMs: peer.JitterMs, LossPercent: peer.LossPercent})
		if err := netlink.QdiscAdd(leaf); err != nil {
			return classify.TC(fmt.Errorf("add netem leaf for peer %s on %s: %w", peer.DestIP, ifaceName, err))
		}

		if err := addDestFilter(link, peer.DestIP, peer.ClassMinor); err != nil {
			return classify.TC(err)
		}
	}

	if err := addBroadcastClass(linkIndex, ifaceName, totalRate); err != nil {
		return classify.TC(err)
	}

	return nil
}

func addPeerClass(linkIndex int, rootHandle uint32, peer PeerShape, totalRate uint64) error {
	rate := mbpsToBytesPerSec(peer.RateMbps)
	ceil := mbpsToBytesPerSec(peer.CeilMbps)
	if ceil == 0 {
		ceil = totalRate
	}

	class := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: linkIndex,
		Parent:    netlink.MakeHandle(rootHandle, 1),
		Handle:    netlink.MakeHandle(rootHandle, peer.ClassMinor),
	}, netlink.HtbClassAttrs{
		Rate:    rate,
		Ceil:    ceil,
		Buffer:  1514,
		Cbuffer: 1514,
	})
	return netlink.ClassAdd(class)
}

// addBroadcastClass installs class 1:99 (unlimited up to the port's total
// rate) with a minimal-delay netem leaf, the destination for broadcast,
// multicast, and any traffic no peer filter matched.
func addBroadcastClass(linkIndex int, ifaceName string, totalRate uint64) error {
	class := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: linkIndex,
		Parent:    netlink.MakeHandle(htbRootHandle, 1),
		Handle:    netlink.MakeHandle(htbRootHandle, broadcastClassMinor),
	}, netlink.HtbClassAttrs{
		Rate:    totalRate,
		Ceil:    totalRate,
		Buffer:  1514,
		Cbuffer: 1514,
	})
	if err := netlink.ClassAdd(class); err != nil {
		return fmt.Errorf("add htb broadcast class on %s: %w", ifaceName, err)
	}

	leaf := newNetemQdisc(linkIndex, netlink.MakeHandle(htbRootHandle, broadcastClassMinor),
		netlink.MakeHandle(leafQdiscBase+broadcastClassMinor, 0), LinkShape{})
	if err := netlink.QdiscAdd(leaf); err != nil {
		return fmt.Errorf("add broadcast netem leaf on %s: %w", ifaceName, err)
	}
	return nil
}

// addDestFilter steers traffic addressed to destIP into the class
// identified by classMinor via a u32 match on the IPv4 destination address
// field (bytes 16-19 of the IP header). spec documents flower (hash-based
// O(1) lookup) as the preferred classifier for this filter set, with u32 as
// the smaller-scale alternative; this driver implements the u32 path only
// — vishvananda/netlink's flower support isn't exercised anywhere else in
// the corpus this repo is grounded on, and the teacher's own qos-manager
// reference hit the same wall and fell back to u32 rather than hand-build
// flower's TCA attribute set (see DESIGN.md).
func addDestFilter(link netlink.Link, destIP string, classMinor uint16) error {
	ip, mask, err := ipv4ToU32(destIP)
	if err != nil {
		return fmt.Errorf("parse destination %s: %w", destIP, err)
	}

	filter := &netlink.U32{
		FilterAttrs: netlink.FilterAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.MakeHandle(htbRootHandle, 0),
			Priority:  filterPriority,
			Protocol:  unix.ETH_P_IP,
		},
		ClassId: netlink.MakeHandle(htbRootHandle, classMinor),
		Sel: &netlink.TcU32Sel{
			Keys: []netlink.TcU32Key{
				{Mask: mask, Val: ip, Off: 16},
			},
			Flags: netlink.TC_U32_TERMINAL,
		},
	}
	if err := netlink.FilterAdd(filter); err != nil {
		return fmt.Errorf("add destination filter for %s: %w", destIP, err)
	}
	return nil
}
