package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jihwankim/wireless-emulator/pkg/reporting"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Args:  cobra.NoArgs,
	Short: "Show the most recent deployment reports",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("topology", "", "filter by topology name")
}

func runStatus(cmd *cobra.Command, args []string) error {
	topologyName, _ := cmd.Flags().GetString("topology")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := reporting.NewLogger(reporting.LoggerConfig{Level: reporting.LogLevelInfo})
	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("failed to open report storage: %w", err)
	}

	if topologyName != "" {
		report, err := storage.FindReportByTopology(topologyName)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (duration %s, %d link(s))\n", report.TopologyName, report.FinalState, report.Duration, len(report.Links))
		return nil
	}

	summaries, err := storage.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No deployment reports found")
		return nil
	}

	for _, s := range summaries {
		status := "✅"
		if !s.Success {
			status = "❌"
		}
		fmt.Printf("%s %-20s %-10s %-10s %s\n", status, s.TopologyName, s.FinalState, s.Duration, s.StartTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}
