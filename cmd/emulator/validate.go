package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jihwankim/wireless-emulator/pkg/topology/parser"
	"github.com/jihwankim/wireless-emulator/pkg/topology/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <topology.yaml>",
	Args:  cobra.ExactArgs(1),
	Short: "Validate a topology file without deploying it",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	topologyPath := args[0]

	top, err := parser.New(nil).ParseFile(topologyPath)
	if err != nil {
		return fmt.Errorf("failed to parse topology: %w", err)
	}

	v := validator.New()
	if err := v.Validate(top); err != nil {
		return fmt.Errorf("topology validation failed: %w", err)
	}

	if len(v.Warnings) > 0 {
		fmt.Println("⚠️  Warnings:")
		for _, w := range v.Warnings {
			fmt.Printf("   - %s\n", w)
		}
	}

	fmt.Printf("✅ Topology %q is valid (%d node(s), %d link(s))\n", top.Name, len(top.Nodes), len(top.Links))
	return nil
}
