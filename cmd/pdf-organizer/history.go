// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-organizer/internal/history"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded submissions",
	Long: `History lists submissions to the remote processor, newest first, from
the SQLite database in the configured history directory. Use --export to
write the selection to export.yaml next to the database.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Bool("json", false, "output submissions as JSON")
	historyCmd.Flags().Bool("export", false, "write the submissions to export.yaml")
	historyCmd.Flags().String("session", "", "filter by session id")
	historyCmd.Flags().String("outcome", "", "filter by outcome: done or failed")
	historyCmd.Flags().Int("limit", 0, "maximum submissions (0 = configured default)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	opts, err := historyOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if export, _ := cmd.Flags().GetBool("export"); export {
		path, err := store.ExportYAML(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported to %s\n", path)
		return nil
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return store.WriteJSON(ctx, out, opts)
	}

	subs, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	formatHistory(out, subs)
	return nil
}

func historyOptsFromFlags(cmd *cobra.Command) (history.ListOptions, error) {
	sessionID, _ := cmd.Flags().GetString("session")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")

	switch types.SubmissionOutcome(outcome) {
	case "", types.SubmissionDone, types.SubmissionFailed:
	default:
		return history.ListOptions{}, fmt.Errorf("unsupported outcome %q: use done or failed", outcome)
	}
	return history.ListOptions{
		SessionID: sessionID,
		Outcome:   types.SubmissionOutcome(outcome),
		Limit:     limit,
	}, nil
}

func formatHistory(w io.Writer, subs []types.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No submissions recorded.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-24s  %-6s  %-6s  %-8s  %s\n",
		"Started", "File", "Pages", "Result", "Time", "Operations")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, s := range subs {
		file := s.Filename
		if len(file) > 24 {
			file = file[:21] + "..."
		}
		ops := s.Operations
		if len(ops) > 30 {
			ops = ops[:27] + "..."
		}
		fmt.Fprintf(w, "%-20s  %-24s  %-6d  %-6s  %-8s  %s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04:05"), file, s.PageCount,
			s.Outcome, s.Duration().Round(10*time.Millisecond), ops)
		if s.Error != "" {
			fmt.Fprintf(w, "%22s%s\n", "", s.Error)
		}
	}
	fmt.Fprintf(w, "\n%d submissions\n", len(subs))
}
