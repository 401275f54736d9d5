package reporting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputFormat represents the progress output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatTUI  OutputFormat = "tui"
)

// ProgressReporter reports deployment progress as the controller state
// machine advances.
type ProgressReporter struct {
	format OutputFormat
	logger *Logger
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(format OutputFormat, logger *Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// ReportState reports the current deployment state.
func (pr *ProgressReporter) ReportState(state LiveDeploymentState) {
	switch pr.format {
	case FormatJSON:
		pr.reportJSON(state)
	case FormatTUI:
		pr.reportTUI(state)
	default:
		pr.reportText(state)
	}
}

// ReportStateTransition reports a controller state transition.
func (pr *ProgressReporter) ReportStateTransition(from, to string) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":      "state_transition",
			"from_state": from,
			"to_state":   to,
			"timestamp":  time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Printf("🔄 State Transition: %s → %s\n", from, to)
	default:
		fmt.Printf("[STATE] %s → %s\n", from, to)
	}
}

// ReportMobilityUpdate reports a mobility-triggered reconvergence.
func (pr *ProgressReporter) ReportMobilityUpdate(node string, linkCount int) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":      "mobility_update",
			"node":       node,
			"link_count": linkCount,
			"timestamp":  time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Printf("📍 Mobility Update: %s (%d link(s) reconverged)\n", node, linkCount)
	default:
		fmt.Printf("[MOBILITY] %s: %d link(s) reconverged\n", node, linkCount)
	}
}

// ReportCleanupStarted reports cleanup started.
func (pr *ProgressReporter) ReportCleanupStarted() {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{"event": "cleanup_started", "timestamp": time.Now()})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Println("🧹 Starting cleanup...")
	default:
		fmt.Println("[CLEANUP] Starting cleanup...")
	}
}

// ReportCleanupCompleted reports cleanup completed.
func (pr *ProgressReporter) ReportCleanupCompleted(succeeded, failed int) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "cleanup_completed",
			"succeeded": succeeded,
			"failed":    failed,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		fmt.Printf("🧹 Cleanup complete: %d succeeded, %d failed\n", succeeded, failed)
	default:
		fmt.Printf("[CLEANUP] Complete: %d succeeded, %d failed\n", succeeded, failed)
	}
}

// ReportDeploymentCompleted reports deployment completion.
func (pr *ProgressReporter) ReportDeploymentCompleted(report *DeploymentReport) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{
			"event":     "deployment_completed",
			"report":    report,
			"timestamp": time.Now(),
		})
		fmt.Println(string(data))
	case FormatTUI:
		pr.clearLine()
		pr.printDeploymentSummary(report)
	default:
		pr.printTextSummary(report)
	}
}

func (pr *ProgressReporter) reportText(state LiveDeploymentState) {
	elapsed := state.Elapsed.Round(time.Second)
	fmt.Printf("[%s] %s | Elapsed: %s | Links: %d\n",
		time.Now().Format("15:04:05"), state.State, elapsed, state.LinkCount)
}

func (pr *ProgressReporter) reportJSON(state LiveDeploymentState) {
	data, err := json.Marshal(state)
	if err != nil {
		pr.logger.Error("Failed to marshal state", "error", err)
		return
	}
	fmt.Println(string(data))
}

func (pr *ProgressReporter) reportTUI(state LiveDeploymentState) {
	pr.clearScreen()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("   Wireless Emulator: %s\n", state.TopologyName)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	fmt.Printf("📊 State: %s\n", state.State)
	fmt.Printf("⏱️  Elapsed: %s\n", state.Elapsed.Round(time.Second))
	fmt.Printf("🔗 Links: %d\n", state.LinkCount)
	fmt.Println()

	if len(state.ActiveLinks) > 0 {
		fmt.Printf("📡 Active Links (%d):\n", len(state.ActiveLinks))
		for _, link := range state.ActiveLinks {
			status := "✅"
			if !link.Viable {
				status = "❌"
			}
			fmt.Printf("   %s %s (%s.%s): delay=%.2fms loss=%.2f%% rate=%.2fMbps\n",
				status, link.LinkID, link.TxNode, link.TxInterface, link.DelayMs, link.LossPercent, link.RateMbps)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("─", 80))
}

func (pr *ProgressReporter) printDeploymentSummary(report *DeploymentReport) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("   DEPLOYMENT SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	statusIcon, statusText := "✅", "SUCCEEDED"
	if !report.Success {
		statusIcon, statusText = "❌", "FAILED"
	}

	fmt.Printf("%s Deployment %s\n", statusIcon, statusText)
	fmt.Printf("   Topology: %s\n", report.TopologyName)
	fmt.Printf("   Duration: %s\n", report.Duration)
	fmt.Println()

	if len(report.Links) > 0 {
		viable := 0
		for _, link := range report.Links {
			if link.Viable {
				viable++
			}
		}
		fmt.Printf("📡 Links (%d, %d viable):\n", len(report.Links), viable)
		for _, link := range report.Links {
			status := "✅"
			if !link.Viable {
				status = "❌"
			}
			fmt.Printf("   %s %s (%s.%s)\n", status, link.LinkID, link.TxNode, link.TxInterface)
		}
		fmt.Println()
	}

	fmt.Printf("🧹 Cleanup: %d succeeded, %d failed\n", report.CleanupSummary.Succeeded, report.CleanupSummary.Failed)
	fmt.Println()

	fmt.Println(strings.Repeat("=", 80))
}

func (pr *ProgressReporter) printTextSummary(report *DeploymentReport) {
	status := "SUCCEEDED"
	if !report.Success {
		status = "FAILED"
	}

	fmt.Printf("\n[DEPLOYMENT SUMMARY] %s\n", status)
	fmt.Printf("  Topology: %s\n", report.TopologyName)
	fmt.Printf("  Duration: %s\n", report.Duration)
	fmt.Printf("  Links: %d\n", len(report.Links))
	fmt.Printf("  Cleanup: %d succeeded, %d failed\n",
		report.CleanupSummary.Succeeded, report.CleanupSummary.Failed)
	fmt.Println()
}

func (pr *ProgressReporter) clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func (pr *ProgressReporter) clearLine() {
	fmt.Print("\033[K")
}
