package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/notifyhub/garage-controller/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "garaged",
		Short: "Garage door and motion sensor controller",
		Long: `garaged keeps one MQTT session open, pulses the door relay when a
command arrives on /garage/door, and reports motion sensor edges on
/garage/motion.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GARAGE_CONFIG"), "path to a TOML config file")
	config.BindFlags(root.PersistentFlags(), config.Default())

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the controller (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, configPath)
		},
	})
	root.AddCommand(newPulseCmd(&configPath))

	return root
}
