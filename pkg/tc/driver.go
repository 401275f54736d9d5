package tc

import (
	"fmt"

	"github.com/jihwankim/wireless-emulator/pkg/classify"
)

// NamespaceEntrant runs fn inside the named node's network namespace.
// Satisfied by *pkg/runtime.Adapter.
type NamespaceEntrant interface {
	WithNamespace(node string, fn func() error) error
}

// Driver applies computed link shapes to deployed nodes' interfaces,
// entering each node's namespace before touching its qdiscs.
type Driver struct {
	ns NamespaceEntrant
}

// NewDriver builds a Driver over the given namespace entrant.
func NewDriver(ns NamespaceEntrant) *Driver {
	return &Driver{ns: ns}
}

// ApplyPointToPoint installs shape on node's interface.
func (d *Driver) ApplyPointToPoint(node, iface string, shape LinkShape) error {
	err := d.ns.WithNamespace(node, func() error {
		return ApplyNetem(iface, shape)
	})
	if err != nil {
		return classify.TC(fmt.Errorf("apply netem on %s.%s: %w", node, iface, err))
	}
	return nil
}

// ClearPointToPoint removes any previously applied shape from node's interface.
func (d *Driver) ClearPointToPoint(node, iface string) error {
	err := d.ns.WithNamespace(node, func() error {
		return RemoveNetem(iface)
	})
	if err != nil {
		return classify.TC(fmt.Errorf("clear netem on %s.%s: %w", node, iface, err))
	}
	return nil
}

// ApplySharedBridge installs per-peer HTB classes on node's bridge-facing
// interface, one per destination peer.
func (d *Driver) ApplySharedBridge(node, iface string, totalMbps float64, peers []PeerShape) error {
	err := d.ns.WithNamespace(node, func() error {
		return ApplyHTB(iface, totalMbps, peers)
	})
	if err != nil {
		return classify.TC(fmt.Errorf("apply htb on %s.%s: %w", node, iface, err))
	}
	return nil
}
