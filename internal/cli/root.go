package cli

import (
	"os"

	"braincraft/internal/config"
	"github.com/spf13/cobra"
)

const serviceName = "braincraft"

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	// A broken .env must not stop the binary; real env vars still apply.
	_ = config.LoadDotEnv()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "braincraft",
		Short:        "Quiz authoring and play service with live leaderboards",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", os.Getenv("PORT"), "port to listen on (overrides config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
