package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jihwankim/wireless-emulator/pkg/cleanup"
	"github.com/jihwankim/wireless-emulator/pkg/reporting"
	"github.com/jihwankim/wireless-emulator/pkg/runtime"
	"github.com/jihwankim/wireless-emulator/pkg/tc"
	"github.com/jihwankim/wireless-emulator/pkg/topology"
	"github.com/jihwankim/wireless-emulator/pkg/topology/parser"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <topology.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Force-clean a deployed topology",
	Long: `Clears every interface's netem/HTB shape and destroys every node container
described by the topology file. Unlike a running deploy's own teardown, this
does not require a live controller: it rebuilds the set of shaped endpoints
straight from the topology descriptor, so it works after a crashed deploy or
process restart.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	topologyPath := args[0]
	skipConfirm, _ := cmd.Flags().GetBool("yes")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Safety.RequireConfirmation && !skipConfirm {
		fmt.Printf("This will destroy every node and clear every shape in %s. Continue? [y/N] ", topologyPath)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  reporting.LogLevelInfo,
		Format: reporting.LogFormat(cfg.Framework.LogFormat),
		Output: os.Stdout,
	})

	top, err := parser.New(nil).ParseFile(topologyPath)
	if err != nil {
		return fmt.Errorf("failed to parse topology: %w", err)
	}

	nodes, err := runtime.New()
	if err != nil {
		return fmt.Errorf("failed to create runtime adapter: %w", err)
	}
	defer nodes.Close()

	shapes := tc.NewDriver(nodes)
	coordinator := cleanup.New(nodes, shapes)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Emergency.AutoCleanupTimeout)
	defer cancel()

	if err := coordinator.CleanupAll(ctx, top, shapedEndpoints(top)); err != nil {
		coordinator.PrintAuditLog()
		return fmt.Errorf("cleanup failed: %w", err)
	}

	summary := coordinator.GetSummary()
	logger.Info("Cleanup complete", "summary", summary.String())
	fmt.Println(summary.String())

	return nil
}

// shapedEndpoints enumerates every interface a deploy would have shaped:
// wireless interfaces (converged via the channel service) and fixed_netem
// interfaces (applied statically). Both kinds carry a qdisc that needs
// clearing before the container is destroyed.
func shapedEndpoints(t *topology.Topology) []cleanup.LinkEndpoint {
	var endpoints []cleanup.LinkEndpoint
	for nodeName, node := range t.Nodes {
		for ifaceName, iface := range node.Interfaces {
			if iface.Wireless == nil && iface.FixedNetem == nil {
				continue
			}
			endpoints = append(endpoints, cleanup.LinkEndpoint{Node: nodeName, Interface: ifaceName})
		}
	}
	return endpoints
}
