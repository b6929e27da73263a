package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/logging"
)

// Version is set at build time with -ldflags "-X ...cli.Version=v1.2.3".
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "negotiator",
	Short: "Claim negotiator - decision pipeline for insurance claim negotiations",
	Long: `Negotiator runs an insurance claim through intake, emotion analysis,
policy verification, validation, precedent analysis, compliance, settlement
and escalation, and records every step in a hash-chained audit trail.

It decides whether a negotiation can proceed automatically or must be
handed to a human agent, and with which settlement offer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "negotiator %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.negotiator/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
}

// initEnv loads .env from the working directory so its values reach the
// NEGOTIATOR_* overrides.
func initEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: .env not loaded: %v\n", err)
	}
}

// loadConfig resolves the configuration and builds the logger it names.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, used, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger := logging.New(cfg.Log, os.Stderr)
	if used != "" {
		logger.Debug().Str("path", used).Msg("config file loaded")
	}
	return cfg, logger, nil
}
