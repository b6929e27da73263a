package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage negotiator configuration",
	Long: `Manage negotiator configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. Environment variables (NEGOTIATOR_*, also read from .env)
2. Config file (~/.negotiator/config.yaml or --config)
3. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", used)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults)\n\n")
		}

		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  `Create a configuration file at ~/.negotiator/config.yaml (or --config) holding every default.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		path := cfgFile
		if path == "" {
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'negotiator config show' to view it, or delete it first to recreate", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		body, err := config.Marshal(config.Default())
		if err != nil {
			return err
		}
		header := "# Negotiator configuration\n" +
			"#\n" +
			"# Every key can be overridden by an environment variable: upper-case the\n" +
			"# path, join with underscores and prefix NEGOTIATOR_, e.g.\n" +
			"#   NEGOTIATOR_PIPELINE_BUDGET=10s\n" +
			"#   NEGOTIATOR_AUDIT_STORE=sqlite NEGOTIATOR_AUDIT_PATH=./audit.db\n\n"

		if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
