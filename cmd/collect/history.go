package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/repository"
)

var historyFlags struct {
	limit  int
	source string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent collect runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, runs, err := openLedger(cfg)
		if err != nil {
			return err
		}
		if runs == nil {
			return errors.New("run ledger is disabled: set database.enabled")
		}
		defer repository.Close(db)

		list, err := runs.ListRecent(cmd.Context(), historyFlags.source, historyFlags.limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), list)

		counts, err := runs.CountByStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nAll runs: %d completed, %d failed, %d running\n",
			counts[domain.RunStatusCompleted], counts[domain.RunStatusFailed], counts[domain.RunStatusRunning])
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyFlags.source, "source", "", "only runs of this adapter")
}

func printHistory(out io.Writer, runs []domain.CollectRun) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No collect runs recorded.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSOURCE\tSTATUS\tFETCHED\tPASSED\tFLAGGED\tBLOCKED\tADDED\tSKIPPED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format(time.DateTime), r.Source, r.Status,
			r.Fetched, r.Passed, r.Flagged, r.Blocked, r.Added, r.Skipped)
	}
	w.Flush()
}
