// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-organizer/internal/history"
	"github.com/pdiddy/pdf-organizer/internal/logging"
	"github.com/pdiddy/pdf-organizer/internal/oplog"
	"github.com/pdiddy/pdf-organizer/internal/remote"
	"github.com/pdiddy/pdf-organizer/internal/render"
	"github.com/pdiddy/pdf-organizer/internal/session"
	"github.com/pdiddy/pdf-organizer/pkg/types"
)

const defaultOutput = "organized.pdf"

var organizeCmd = &cobra.Command{
	Use:   "organize <file.pdf>",
	Short: "Apply page operations to a PDF through the remote processor",
	Long: `Organize loads a PDF, renders its page previews, records the requested
operations, and submits the original document and the operations to the
remote processor. The returned document is written to --out.

Operations from --ops-file are recorded first, in file order. The
--rotate, --delete, and --duplicate flags follow in the order they appear
on the command line. Page indices are zero-based.

  pdf-organizer organize report.pdf --rotate 0:180 --delete 3 --duplicate 1`,
	Args: cobra.ExactArgs(1),
	RunE: runOrganize,
}

func init() {
	addOperationFlags(organizeCmd)
	organizeCmd.Flags().String("ops-file", "", "YAML file with an operations list")
	organizeCmd.Flags().String("out", defaultOutput, "path for the organized PDF")
	organizeCmd.Flags().String("endpoint", "", "processor URL (default from config)")
	organizeCmd.Flags().Duration("timeout", 0, "processor request timeout (default from config, 120s)")
	organizeCmd.Flags().Bool("no-preview", false, "skip pdftoppm and use blank thumbnails")
	organizeCmd.Flags().Bool("no-history", false, "do not record the submission in the history database")
	addRenderFlags(organizeCmd)

	rootCmd.AddCommand(organizeCmd)
}

func runOrganize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ops, err := requestedOperations(cmd)
	if err != nil {
		return err
	}

	noPreview, _ := cmd.Flags().GetBool("no-preview")
	renderer, err := newRenderer(cmd, noPreview)
	if err != nil {
		return err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithProgress(func(t render.Thumbnail, total int) {
			logging.With(logger.Debug(), logging.Page(t.Index), logging.Pages(total)).Msg("page rendered")
		}),
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory {
		store, err := history.NewStore(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, session.WithSubmissionHook(recordSubmission(store)))
	}

	sess, err := session.New(renderer, newProcessor(cmd), opts...)
	if err != nil {
		return err
	}

	if err := sess.LoadDocument(ctx, filepath.Base(path), data); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), sess.Message())
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sess.Message())

	for _, op := range ops {
		if err := sess.Apply(op); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sess.Message())
	}

	out, err := sess.Submit(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), sess.Message())
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s (%d bytes)\n", sess.Message(), outPath, len(out))
	return nil
}

// requestedOperations collects operations from --ops-file and the
// operation flags, in application order.
func requestedOperations(cmd *cobra.Command) ([]oplog.Operation, error) {
	var ops []oplog.Operation
	if file, _ := cmd.Flags().GetString("ops-file"); file != "" {
		script, err := oplog.LoadScript(file)
		if err != nil {
			return nil, err
		}
		ops = append(ops, script.Operations...)
	}
	return append(ops, flagOperations(cmd)...), nil
}

func newProcessor(cmd *cobra.Command) *remote.Client {
	pc := cfg.Processor
	if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
		pc.Endpoint = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		pc.Timeout = v
	}
	return remote.NewClient(nil, pc)
}

// recordSubmission returns a session hook that stores each submission.
// A history failure is logged and does not fail the command.
func recordSubmission(store *history.Store) func(types.Submission) {
	return func(sub types.Submission) {
		if err := store.Record(context.Background(), sub); err != nil {
			logging.With(logger.Warn(), logging.SessionID(sub.SessionID), logging.ErrorField(err)).
				Msg("could not record submission")
		}
	}
}
