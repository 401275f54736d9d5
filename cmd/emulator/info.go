package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Args:  cobra.NoArgs,
	Short: "Print version and configuration info",
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
	}

	fmt.Printf("wireless-emulator %s\n", version)
	fmt.Printf("config path: %s\n", configPath)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fmt.Printf("channel service: %s\n", cfg.ChannelService.ListenAddr)
	fmt.Printf("mobility api:    %s\n", cfg.Mobility.ListenAddr)
	fmt.Printf("runtime image:   %s\n", cfg.Runtime.DefaultImage)
	fmt.Printf("reports dir:     %s\n", cfg.Reporting.OutputDir)
	fmt.Printf("emergency stop:  %s\n", cfg.Emergency.StopFile)
	return nil
}
