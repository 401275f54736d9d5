package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/jihwankim/wireless-emulator/pkg/channelservice"
	"github.com/jihwankim/wireless-emulator/pkg/controller"
	"github.com/jihwankim/wireless-emulator/pkg/emergency"
	"github.com/jihwankim/wireless-emulator/pkg/mobility"
	"github.com/jihwankim/wireless-emulator/pkg/reporting"
	"github.com/jihwankim/wireless-emulator/pkg/runtime"
	"github.com/jihwankim/wireless-emulator/pkg/tc"
	"github.com/jihwankim/wireless-emulator/pkg/topology/parser"
	"github.com/jihwankim/wireless-emulator/pkg/topology/validator"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <topology.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Deploy a lab topology",
	Long:  `Parses a topology YAML file, stands up its containers/veths, and converges every declared link's channel shape.`,
	RunE:  runDeploy,
}

func init() {
	deployCmd.Flags().StringArray("set", []string{}, "override topology values (e.g., --set rover.wlan0.rf_power_dbm=10)")
	deployCmd.Flags().String("format", "text", "output format (text, json, tui)")
	deployCmd.Flags().Bool("enable-mobility", false, "start the mobility HTTP API and keep the lab running until stopped")
	deployCmd.Flags().Bool("dry-run", false, "validate the topology without deploying")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	topologyPath := args[0]
	setFlags, _ := cmd.Flags().GetStringArray("set")
	outputFormat, _ := cmd.Flags().GetString("format")
	enableMobility, _ := cmd.Flags().GetBool("enable-mobility")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

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
	logger.Info("Wireless emulator starting", "version", version)

	p := parser.New(nil)
	p.SetVariable("DEFAULT_IMAGE", cfg.Runtime.DefaultImage)
	top, err := p.ParseFile(topologyPath)
	if err != nil {
		return fmt.Errorf("failed to parse topology: %w", err)
	}
	if top.Prefix == "" {
		top.Prefix = cfg.Runtime.NodePrefix
	}

	if len(setFlags) > 0 {
		overrides, err := p.ParseOverrides(setFlags)
		if err != nil {
			return fmt.Errorf("failed to parse overrides: %w", err)
		}
		if err := parser.ApplyOverrides(top, overrides); err != nil {
			return fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	if dryRun {
		if err := validator.New().Validate(top); err != nil {
			return fmt.Errorf("topology validation failed: %w", err)
		}
		fmt.Println("✅ Topology is valid (dry-run mode)")
		return nil
	}

	nodes, err := runtime.New()
	if err != nil {
		return fmt.Errorf("failed to create runtime adapter: %w", err)
	}
	defer nodes.Close()

	shapes := tc.NewDriver(nodes)
	channelClient := channelservice.NewClient("http://"+cfg.ChannelService.ListenAddr, cfg.ChannelService.ComputeTimeout)

	ctrl := controller.New(controller.Config{
		Nodes:     nodes,
		Shapes:    shapes,
		Channel:   channelClient,
		PollEvery: cfg.Mobility.PollInterval,
		Log:       logger.GetZerologLogger(),
	})

	emergencyCtrl := emergency.New(emergency.Config{
		StopFile:             cfg.Emergency.StopFile,
		PollInterval:         2 * time.Second,
		EnableSignalHandlers: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emergencyCtrl.OnStop(func() {
		logger.Warn("Emergency stop triggered, tearing down topology")
		teardownCtx, teardownCancel := context.WithTimeout(context.Background(), cfg.Emergency.AutoCleanupTimeout)
		defer teardownCancel()
		if err := ctrl.Teardown(teardownCtx); err != nil {
			logger.Error("Emergency teardown failed", "error", err)
		}
		cancel()
	})
	emergencyCtrl.Start(ctx)

	start := time.Now()
	deployErr := ctrl.Deploy(ctx, top)

	storage, err := reporting.NewStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return fmt.Errorf("failed to create report storage: %w", err)
	}
	progress := reporting.NewProgressReporter(reporting.OutputFormat(outputFormat), logger)

	summary := ctrl.Summary(start, deployErr)
	report := &reporting.DeploymentReport{DeploymentSummary: summary}
	if _, saveErr := storage.SaveReport(report); saveErr != nil {
		logger.Warn("Failed to save report", "error", saveErr)
	}
	progress.ReportDeploymentCompleted(report)

	if deployErr != nil {
		return fmt.Errorf("deployment failed: %w", deployErr)
	}

	if !enableMobility {
		logger.Info("Deployment completed successfully")
		return nil
	}

	mobilityHandlers := mobility.NewHandlers(ctrl, logger.GetZerologLogger())
	router := chi.NewRouter()
	mobilityHandlers.Routes(router)

	mobilitySrv := &http.Server{Addr: cfg.Mobility.ListenAddr, Handler: router}
	go func() {
		logger.Info("Mobility API listening", "addr", cfg.Mobility.ListenAddr)
		if err := mobilitySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Mobility API stopped", "error", err)
		}
	}()

	logger.Info("Lab running, waiting for stop signal or emergency-stop file")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Interrupt received, tearing down")
	case <-emergencyCtrl.StopChannel():
		logger.Info("Emergency stop observed")
	}

	_ = mobilitySrv.Close()

	if !emergencyCtrl.IsStopped() {
		teardownCtx, teardownCancel := context.WithTimeout(context.Background(), cfg.Emergency.AutoCleanupTimeout)
		defer teardownCancel()
		if err := ctrl.Teardown(teardownCtx); err != nil {
			return fmt.Errorf("teardown failed: %w", err)
		}
	}

	return nil
}
