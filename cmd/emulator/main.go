package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "emulator",
	Short: "Wireless network emulator for ray-traced RF channel shaping",
	Long: `Emulator turns a declarative lab topology into live containers whose veth
interfaces are shaped via tc/netem based on ray-traced RF channel computations.
It deploys nodes, converges every declared link's channel parameters, and
exposes a mobility API for moving nodes while the lab is running.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(channelServerCmd)
	rootCmd.AddCommand(infoCmd)
}

// Commands are defined in separate files:
// - deployCmd in deploy.go
// - destroyCmd in destroy.go
// - validateCmd in validate.go
// - statusCmd in status.go
// - channelServerCmd in channelserver.go
// - infoCmd in info.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
