package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
)

var (
	auditRunID string
	auditDB    string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect stored audit trails",
	Long: `Reads audit trails from the SQLite audit store.

Example:
  negotiator audit runs --db audit.db
  negotiator audit report --db audit.db --run 6f1c...
  negotiator audit verify --db audit.db --run 6f1c...`,
}

var auditRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored plan run ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditStore(func(m *audit.Manager) error {
			runs, err := m.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		})
	},
}

var auditReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the compliance report of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditStore(func(m *audit.Manager) error {
			if err := requireEntries(cmd, m); err != nil {
				return err
			}
			report, err := m.Report(cmd.Context(), auditRunID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		})
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the entries of a run as a JSON array",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditStore(func(m *audit.Manager) error {
			if err := requireEntries(cmd, m); err != nil {
				return err
			}
			out, err := m.Export(cmd.Context(), auditRunID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		})
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chain of a run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditStore(func(m *audit.Manager) error {
			if err := requireEntries(cmd, m); err != nil {
				return err
			}
			if err := m.Verify(cmd.Context(), auditRunID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "audit trail %s verified\n", auditRunID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVar(&auditDB, "db", "", "SQLite audit database (default: audit.path from config)")

	for _, c := range []*cobra.Command{auditReportCmd, auditExportCmd, auditVerifyCmd} {
		c.Flags().StringVar(&auditRunID, "run", "", "plan run id (required)")
		_ = c.MarkFlagRequired("run")
		auditCmd.AddCommand(c)
	}
	auditCmd.AddCommand(auditRunsCmd)
}

// withAuditStore opens the configured SQLite store for the duration of fn.
func withAuditStore(fn func(*audit.Manager) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := auditPath(cfg)
	if err != nil {
		return err
	}
	store, err := audit.OpenSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer store.Close()
	return fn(audit.NewManager(store, cfg.Audit.Rules, logger))
}

func auditPath(cfg config.Config) (string, error) {
	switch {
	case auditDB != "":
		return auditDB, nil
	case cfg.Audit.Store == "sqlite":
		return cfg.Audit.Path, nil
	default:
		return "", fmt.Errorf("audit store is %q; pass --db or set audit.store=sqlite", cfg.Audit.Store)
	}
}

func requireEntries(cmd *cobra.Command, m *audit.Manager) error {
	entries, err := m.Entries(cmd.Context(), auditRunID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no audit trail for run %q", auditRunID)
	}
	return nil
}
