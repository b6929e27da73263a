package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
)

var (
	sessionRunID string
	sessionDB    string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect stored negotiation sessions",
	Long: `Reads conversation sessions from the SQLite session store.

Example:
  negotiator session list --db sessions.db
  negotiator session show --db sessions.db --run 6f1c...
  negotiator session cleanup --db sessions.db`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(func(m *session.Manager) error {
			list, err := m.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d turns\tupdated %s\n",
					s.SessionID, s.ClaimStatus, s.TotalTurns, humanize.Time(s.UpdatedAt))
			}
			return nil
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a session and its summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(func(m *session.Manager) error {
			s, err := m.Get(cmd.Context(), sessionRunID)
			if err != nil {
				return fmt.Errorf("session %q: %w", sessionRunID, err)
			}
			return writeJSON(cmd, map[string]any{"session": s, "summary": s.Summary()})
		})
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Delete a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(func(m *session.Manager) error {
			if err := m.End(cmd.Context(), sessionRunID); err != nil {
				return fmt.Errorf("session %q: %w", sessionRunID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s ended\n", sessionRunID)
			return nil
		})
	},
}

var sessionCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete sessions idle past sessions.expiry.idle_timeout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionStore(func(m *session.Manager) error {
			n, err := m.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d expired sessions removed\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.PersistentFlags().StringVar(&sessionDB, "db", "", "SQLite session database (default: sessions.path from config)")

	for _, c := range []*cobra.Command{sessionShowCmd, sessionEndCmd} {
		c.Flags().StringVar(&sessionRunID, "run", "", "plan run id (required)")
		_ = c.MarkFlagRequired("run")
		sessionCmd.AddCommand(c)
	}
	sessionCmd.AddCommand(sessionListCmd, sessionCleanupCmd)
}

// withSessionStore opens the configured SQLite session store for the
// duration of fn.
func withSessionStore(fn func(*session.Manager) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := sessionPath(cfg)
	if err != nil {
		return err
	}
	store, err := session.OpenSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()
	return fn(session.NewManager(store, cfg.Sessions.Expiry, logger))
}

func sessionPath(cfg config.Config) (string, error) {
	switch {
	case sessionDB != "":
		return sessionDB, nil
	case cfg.Sessions.Store == "sqlite":
		return cfg.Sessions.Path, nil
	default:
		return "", fmt.Errorf("session store is %q; pass --db or set sessions.store=sqlite", cfg.Sessions.Store)
	}
}
