package cli

import (
	"github.com/spf13/cobra"

	"acvcharts/internal/config"
	applog "acvcharts/internal/log"
)

// runtime is what every command needs after flags are parsed.
type runtime struct {
	cfg    *config.Config
	logger *applog.Logger
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := LoadAndValidateConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger.WithComponent(applog.ComponentCLI)}, nil
}

// NewRootCommand builds the acvctl command tree.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "acvctl",
		Short:         "Aggregate won-opportunity ACV by quarter and customer type",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "acvctl version: %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringP("config", "C", "", "Path to a TOML, YAML, or JSON configuration file")

	rootCmd.AddCommand(
		newAggregateCommand(),
		newImportCommand(),
		newMigrateCommand(),
		NewServeCommand(version),
	)
	return rootCmd
}
