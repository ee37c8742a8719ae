package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timmy/promptvault/internal/corpus"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/service"
)

const maxReviewListed = 10

var auditYes bool

var auditCmd = &cobra.Command{
	Use:   "audit <corpus.json>",
	Short: "Re-screen an existing corpus and optionally remove blocked records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentFilter, err := buildFilter(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		confirm := promptConfirm(cmd.InOrStdin(), out)
		if auditYes {
			confirm = autoConfirm(out)
		}

		report, err := service.NewAuditService(contentFilter).Audit(cmd.Context(), corpus.NewStore(args[0]), confirm)
		if err != nil {
			return err
		}
		printAuditReport(out, report)
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVarP(&auditYes, "yes", "y", false, "remove blocked records without asking")
}

// promptConfirm lists blocked records and asks for a y/N answer on in.
func promptConfirm(in io.Reader, out io.Writer) service.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(blocked []filter.Flagged) bool {
		printBlocked(out, blocked)
		fmt.Fprint(out, "\nRemove these items? [y/N] ")
		answer, _ := reader.ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	}
}

// autoConfirm lists blocked records and approves their removal.
func autoConfirm(out io.Writer) service.ConfirmFunc {
	return func(blocked []filter.Flagged) bool {
		printBlocked(out, blocked)
		return true
	}
}

func printBlocked(out io.Writer, blocked []filter.Flagged) {
	fmt.Fprintf(out, "\nFound %d items that should be REMOVED:\n", len(blocked))
	for i := range blocked {
		fmt.Fprintln(out, previewLine(&blocked[i].Record))
		for _, r := range blocked[i].Verdict.Reasons {
			fmt.Fprintf(out, "      %s\n", r)
		}
	}
}

func printAuditReport(out io.Writer, report *service.AuditReport) {
	fmt.Fprintf(out, "\nAudited %d existing prompts\n  %s\n", report.Total, report.Stats)

	if len(report.Blocked) > 0 {
		if report.Confirmed {
			fmt.Fprintf(out, "Removed %d items. %d remaining.\n", report.Removed, report.Remaining)
		} else {
			fmt.Fprintln(out, "Skipped. Check the filter log for details.")
		}
	}

	if len(report.Review) > 0 {
		fmt.Fprintf(out, "\nFound %d items that need manual review:\n", len(report.Review))
		for i, item := range report.Review {
			if i == maxReviewListed {
				fmt.Fprintf(out, "  ... and %d more. Check the filter log.\n", len(report.Review)-maxReviewListed)
				break
			}
			fmt.Fprintln(out, previewLine(&item.Record))
		}
	}

	if report.LogPath != "" {
		fmt.Fprintf(out, "Filter log: %s\n", report.LogPath)
	}
	if report.Clean() {
		fmt.Fprintln(out, "\nAll items passed compliance check!")
	}
}
