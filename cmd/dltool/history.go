package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/dltool/internal/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Show the runs recorded with --history-db.

Without an argument the most recent runs are listed. With a run id the
outcome of every item in that run is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer appCtx.Close()

			if appCtx.Config.Store.DSN == "" {
				return withCode(ExitInvalidArgs, errors.New("no history database configured, use --history-db"))
			}
			if err := appCtx.OpenStore(cmd.Context()); err != nil {
				return withCode(ExitEnvironment, fmt.Errorf("open history: %w", err))
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := appCtx.Store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printRuns(out, runs)
				return nil
			}

			run, err := appCtx.Store.GetRun(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, store.ErrRunNotFound) {
					return withCode(ExitInvalidArgs, fmt.Errorf("run %s: %w", args[0], err))
				}
				return err
			}
			outcomes, err := appCtx.Store.Outcomes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			missing, err := appCtx.Store.Missing(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			printRun(out, run, outcomes, missing)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")

	return cmd
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, r := range runs {
		state := ""
		if r.Interrupted {
			state = " (interrupted)"
		}
		fmt.Fprintf(w, "%s  %-14s %s%s\n", r.ID, humanize.Time(r.StartedAt), r.Label, state)
		fmt.Fprintf(w, "    %d wanted, %d missing, %d downloaded, %d present, %d failed, %d cancelled, %s\n",
			r.Wanted, r.Missing, r.Completed, r.Skipped, r.Failed, r.Cancelled, humanize.IBytes(uint64(r.Bytes)))
	}
}

func printRun(w io.Writer, r *store.Run, outcomes []store.Outcome, missing []string) {
	fmt.Fprintf(w, "Run %s: %s\n", r.ID, r.Label)
	fmt.Fprintf(w, "Started %s, took %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	for _, o := range outcomes {
		line := fmt.Sprintf("  %-9s %s (%s, %d attempts)", o.Status, o.FileName, humanize.IBytes(uint64(o.Bytes)), o.Attempts)
		if o.Error != "" {
			line += ": " + o.Error
		}
		fmt.Fprintln(w, line)
	}

	if len(missing) > 0 {
		fmt.Fprintln(w, "Not available on the server:")
		for _, name := range missing {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}
