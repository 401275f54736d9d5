package runtime

import (
	"fmt"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// NodeSpec is the materialized container spec for one topology node:
// image, hostname, and the veth names it needs, derived once up front so
// deploy/destroy agree on naming.
type NodeSpec struct {
	Name       string
	Image      string
	Interfaces []InterfaceSpec
}

// InterfaceSpec names the host- and container-side veth peer for one
// declared interface, plus its IP if any.
type InterfaceSpec struct {
	Name      string
	IPAddress string
	HostVeth  string
	PeerVeth  string
}

// hostVethName keeps names within Linux's 15-character IFNAMSIZ limit by
// hashing node.interface into a short deterministic suffix.
func hostVethName(prefix, node, iface string) string {
	return fmt.Sprintf("%sv%x", truncate(prefix, 3), fnv32(node+"."+iface))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h % 0xFFFFFF
}

// BuildNodeSpecs derives one NodeSpec per topology node, with a host/peer
// veth pair name for every interface (used whether the link is explicit
// point-to-point or joins the shared bridge).
func BuildNodeSpecs(t *topology.Topology) map[string]NodeSpec {
	specs := make(map[string]NodeSpec, len(t.Nodes))
	for name, n := range t.Nodes {
		var ifaces []InterfaceSpec
		for ifaceName, iface := range n.Interfaces {
			host := hostVethName(t.Prefix, name, ifaceName)
			ifaces = append(ifaces, InterfaceSpec{
				Name:      ifaceName,
				IPAddress: iface.IPAddress,
				HostVeth:  fmt.Sprintf("%s0", host),
				PeerVeth:  fmt.Sprintf("%s1", host),
			})
		}
		specs[name] = NodeSpec{Name: name, Image: n.Image, Interfaces: ifaces}
	}
	return specs
}
