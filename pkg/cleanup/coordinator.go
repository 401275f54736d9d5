// Package cleanup provides an audited, best-effort teardown path for a
// deployed topology: clearing every link's qdiscs before destroying the
// underlying containers and namespaces. It is used by the destroy CLI
// command to force-clean a topology that a live controller no longer has
// state for (process restart, crashed deploy).
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/jihwankim/wireless-emulator/pkg/topology"
)

// NodeDestroyer tears down every container backing a topology.
type NodeDestroyer interface {
	Destroy(ctx context.Context, t *topology.Topology) error
}

// ShapeClearer removes a previously applied netem/HTB shape from one
// node's interface.
type ShapeClearer interface {
	ClearPointToPoint(node, iface string) error
}

// LinkEndpoint names one interface a shape was applied to.
type LinkEndpoint struct {
	Node      string
	Interface string
}

// Coordinator orchestrates cleanup of a deployed topology's qdiscs and
// containers, keeping an audit trail of every step taken.
type Coordinator struct {
	nodes    NodeDestroyer
	shapes   ShapeClearer
	auditLog []AuditEntry
}

// AuditEntry represents one cleanup action.
type AuditEntry struct {
	Timestamp time.Time
	Action    string
	Target    string
	Success   bool
	Error     error
	Details   string
}

// New creates a cleanup coordinator.
func New(nodes NodeDestroyer, shapes ShapeClearer) *Coordinator {
	return &Coordinator{nodes: nodes, shapes: shapes, auditLog: make([]AuditEntry, 0)}
}

// CleanupAll clears the shape on every endpoint, then destroys every
// container in t. Shape-clearing failures are logged but don't stop the
// container teardown from proceeding; the first error of either phase is
// returned.
func (c *Coordinator) CleanupAll(ctx context.Context, t *topology.Topology, endpoints []LinkEndpoint) error {
	fmt.Println("🧹 Starting cleanup of deployed topology...")

	var firstErr error

	if len(endpoints) == 0 {
		fmt.Println("   No shaped links to clear")
	} else {
		fmt.Printf("   Found %d shaped link(s) to clear\n", len(endpoints))
	}

	cleared, failed := 0, 0
	for _, ep := range endpoints {
		target := ep.Node + "." + ep.Interface
		if err := c.shapes.ClearPointToPoint(ep.Node, ep.Interface); err != nil {
			c.logAudit("clear_shape", target, "Failed to clear shape", err)
			fmt.Printf("   ❌ Failed to clear %s: %v\n", target, err)
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("clear shape on %s: %w", target, err)
			}
			continue
		}
		c.logAudit("clear_shape", target, "Shape cleared successfully", nil)
		cleared++
	}
	fmt.Printf("🧹 Shape cleanup complete: %d cleared, %d failed\n", cleared, failed)

	if err := c.nodes.Destroy(ctx, t); err != nil {
		c.logAudit("destroy_nodes", t.Name, "Failed to destroy nodes", err)
		fmt.Printf("   ❌ Failed to destroy nodes: %v\n", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("destroy nodes: %w", err)
		}
	} else {
		c.logAudit("destroy_nodes", t.Name, "All nodes destroyed", nil)
		fmt.Println("   ✅ All nodes destroyed")
	}

	return firstErr
}

func (c *Coordinator) logAudit(action, target, details string, err error) {
	c.auditLog = append(c.auditLog, AuditEntry{
		Timestamp: time.Now(),
		Action:    action,
		Target:    target,
		Success:   err == nil,
		Error:     err,
		Details:   details,
	})
}

// GetAuditLog returns the complete audit log.
func (c *Coordinator) GetAuditLog() []AuditEntry {
	return c.auditLog
}

// PrintAuditLog prints the audit log in a readable format.
func (c *Coordinator) PrintAuditLog() {
	if len(c.auditLog) == 0 {
		fmt.Println("No cleanup actions logged")
		return
	}

	fmt.Println("\n📋 Cleanup Audit Log:")
	fmt.Println("─────────────────────────────────────────────────────────────")

	for i, entry := range c.auditLog {
		status := "✅"
		if !entry.Success {
			status = "❌"
		}

		fmt.Printf("%d. [%s] %s %s\n", i+1, entry.Timestamp.Format("15:04:05"), status, entry.Action)
		fmt.Printf("   Target: %s\n", entry.Target)
		fmt.Printf("   Details: %s\n", entry.Details)

		if entry.Error != nil {
			fmt.Printf("   Error: %v\n", entry.Error)
		}
		fmt.Println()
	}

	fmt.Println("─────────────────────────────────────────────────────────────")
}

// GetSummary returns summary statistics for the audit log.
func (c *Coordinator) GetSummary() Summary {
	s := Summary{TotalActions: len(c.auditLog)}
	for _, entry := range c.auditLog {
		if entry.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Summary contains cleanup summary statistics.
type Summary struct {
	TotalActions int
	Succeeded    int
	Failed       int
}

// String returns a human-readable summary.
func (s Summary) String() string {
	return fmt.Sprintf("Cleanup Summary: %d total actions, %d succeeded, %d failed",
		s.TotalActions, s.Succeeded, s.Failed)
}
