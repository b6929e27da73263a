package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/replay"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/setup"
)

var (
	fixtureFile  string
	concurrency  int
	replayAsJSON bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture of recorded negotiations and check expectations",
	Long: `Negotiates every case of a JSON fixture against the fixture's own policy and
precedent records and compares each outcome with its expectation. Exits
non-zero when any case fails.

Example:
  negotiator replay --fixture internal/replay/testdata/scenarios.json
  negotiator replay --fixture cases.json --concurrency 8 --json`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&fixtureFile, "fixture", "", "fixture JSON file (required)")
	replayCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "cases negotiated at once")
	replayCmd.Flags().BoolVar(&replayAsJSON, "json", false, "print full results as JSON")
	_ = replayCmd.MarkFlagRequired("fixture")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := replay.LoadFixture(fixtureFile)
	if err != nil {
		return err
	}
	deps, err := setup.Wire(cfg, logger, setup.WithRecords(f.Records))
	if err != nil {
		return err
	}
	defer deps.Close()

	results := replay.Replay(cmd.Context(), deps.Pipeline, deps.Normalizer, f.Cases, replay.Config{Concurrency: concurrency})
	summary := replay.Summarize(results)

	if replayAsJSON {
		if err := writeJSON(cmd, map[string]any{"results": results, "summary": summary}); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if f.Description != "" {
			fmt.Fprintf(out, "%s\n\n", f.Description)
		}
		for _, r := range results {
			fmt.Fprintf(out, "%-8s %-32s %s\n", strings.ToUpper(r.Action), r.Case, r.Outcome.Status)
			for _, m := range r.Mismatches {
				fmt.Fprintf(out, "         - %s\n", m)
			}
		}
		fmt.Fprintf(out, "\n%d cases: %d passed, %d failed, %d invalid\n",
			summary.TotalCases, summary.Passed, summary.Failed, summary.Invalid)
	}

	if summary.Failed > 0 || summary.Invalid > 0 {
		return fmt.Errorf("%d of %d cases did not pass", summary.Failed+summary.Invalid, summary.TotalCases)
	}
	return nil
}
