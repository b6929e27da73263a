package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/setup"
)

var (
	claimFile        string
	emotionFile      string
	conversationFile string
	planRunID        string
)

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Negotiate one claim and print the result as JSON",
	Long: `Runs a claim document through the full pipeline and prints the result.

Example:
  negotiator negotiate --claim claim.json
  negotiator negotiate --claim claim.json --emotion emotion.json
  NEGOTIATOR_AUDIT_STORE=sqlite NEGOTIATOR_AUDIT_PATH=audit.db negotiator negotiate --claim claim.json`,
	Args: cobra.NoArgs,
	RunE: runNegotiate,
}

func init() {
	rootCmd.AddCommand(negotiateCmd)

	negotiateCmd.Flags().StringVar(&claimFile, "claim", "", "claim JSON file (required)")
	negotiateCmd.Flags().StringVar(&emotionFile, "emotion", "", "emotion reading JSON file")
	negotiateCmd.Flags().StringVar(&conversationFile, "conversation", "", "conversation turns JSON file")
	negotiateCmd.Flags().StringVar(&planRunID, "run-id", "", "plan run id (default: generated)")
	_ = negotiateCmd.MarkFlagRequired("claim")
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := setup.Wire(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	raw, err := os.ReadFile(claimFile)
	if err != nil {
		return fmt.Errorf("read claim: %w", err)
	}
	details, inputErrs, err := deps.Normalizer.Claim(raw)
	if err != nil {
		return err
	}

	req := pipeline.Request{Claim: details, PlanRunID: planRunID}
	if emotionFile != "" {
		raw, err := os.ReadFile(emotionFile)
		if err != nil {
			return fmt.Errorf("read emotion: %w", err)
		}
		s, errs := deps.Normalizer.Emotion(raw)
		req.Emotion = &s
		inputErrs = append(inputErrs, errs...)
	}
	if conversationFile != "" {
		raw, err := os.ReadFile(conversationFile)
		if err != nil {
			return fmt.Errorf("read conversation: %w", err)
		}
		var turns []claim.Turn
		if err := json.Unmarshal(raw, &turns); err != nil {
			return fmt.Errorf("parse conversation: %w", err)
		}
		req.Conversation = turns
	}
	req.InputErrors = inputErrs

	if cfg.Audit.Store == "memory" {
		logger.Warn().Msg("audit store is in memory; the trail is lost on exit")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := deps.Pipeline.Negotiate(ctx, req)
	return writeJSON(cmd, res)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
