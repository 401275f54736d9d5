package reporting

import (
	"time"

	"github.com/jihwankim/wireless-emulator/pkg/cleanup"
	"github.com/jihwankim/wireless-emulator/pkg/controller"
)

// DeploymentReport is a complete record of one deploy/teardown cycle: the
// controller's final link shapes plus the cleanup audit trail from
// destroying the topology.
type DeploymentReport struct {
	controller.DeploymentSummary

	CleanupSummary cleanup.Summary      `json:"cleanup_summary"`
	CleanupLog     []cleanup.AuditEntry `json:"cleanup_log,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// LiveDeploymentState represents the current state of an in-progress deploy.
type LiveDeploymentState struct {
	TopologyName string        `json:"topology_name"`
	State        string        `json:"state"`
	StartTime    time.Time     `json:"start_time"`
	Elapsed      time.Duration `json:"elapsed"`

	LinkCount   int                      `json:"link_count"`
	ActiveLinks []controller.LinkSummary `json:"active_links,omitempty"`
}
