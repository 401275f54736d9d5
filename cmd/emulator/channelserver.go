package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/reporting"
)

var channelServerCmd = &cobra.Command{
	Use:   "channel-server",
	Args:  cobra.NoArgs,
	Short: "Run the ray-traced channel computation service",
	Long:  `Starts the HTTP service that deploy/mobility use to compute each link's current channel parameters.`,
	RunE:  runChannelServer,
}

func init() {
	channelServerCmd.Flags().String("metrics-addr", "", "separate listen address for the /metrics endpoint (empty disables it)")
}

func runChannelServer(cmd *cobra.Command, args []string) error {
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logLevel := reporting.LogLevelInfo
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})

	srv := channelservice.NewServer(channelservice.ServerConfig{
		Addr:        cfg.ChannelService.ListenAddr,
		MetricsAddr: metricsAddr,
		Tracer:      channelengine.NewFallbackRayTracer(),
		Log:         logger.GetZerologLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("Channel service starting", "addr", cfg.ChannelService.ListenAddr)
	return srv.Run(ctx)
}
