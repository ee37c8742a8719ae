package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/timmy/promptvault/internal/domain"
	"github.com/timmy/promptvault/internal/filter"
	"github.com/timmy/promptvault/internal/repository"
	"github.com/timmy/promptvault/internal/service"
)

var runFlags struct {
	source      string
	limit       int
	merge       bool
	noFilter    bool
	promptsFile string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch prompts from one adapter or all of them",
	Example: `  collect run --source civitai --limit 20
  collect run --source all --merge`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}
		contentFilter, err := buildFilter(cfg)
		if err != nil {
			return err
		}

		var recorder service.RunRecorder
		db, runs, err := openLedger(cfg)
		if err != nil {
			appLog.WithError(err).Warn("Run ledger unavailable, runs will not be recorded")
		} else if runs != nil {
			defer repository.Close(db)
			recorder = runs
		}

		var publisher service.CorpusPublisher
		if cfg.Storage.PublishAfterMerge {
			pub, err := buildPublisher(cfg)
			if err != nil {
				return err
			}
			if pub != nil {
				publisher = pub
			}
		}

		svc := service.NewCollectService(reg, contentFilter, recorder, publisher, appLog, &service.CollectConfig{
			OutputDir:         cfg.Collect.OutputDir,
			CorpusPath:        cfg.Collect.CorpusPath,
			DefaultLimit:      cfg.Collect.DefaultLimit,
			PublishAfterMerge: cfg.Storage.PublishAfterMerge,
		})

		report := svc.Run(cmd.Context(), svc.ResolveNames(runFlags.source), service.RunOptions{
			Limit:      runFlags.limit,
			Merge:      runFlags.merge,
			NoFilter:   runFlags.noFilter,
			CorpusPath: runFlags.promptsFile,
		})
		printRunReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.source, "source", service.AllSources, "adapter name or 'all'")
	f.IntVar(&runFlags.limit, "limit", 0, "max prompts per adapter (default from config)")
	f.BoolVar(&runFlags.merge, "merge", false, "merge results into the corpus")
	f.BoolVar(&runFlags.noFilter, "no-filter", false, "skip the content filter (not recommended)")
	f.StringVar(&runFlags.promptsFile, "prompts-file", "", "corpus file to merge into (default from config)")
}

// printRunReport writes per-source progress and a final summary.
// Per-source failures are printed, not returned.
func printRunReport(out io.Writer, report *service.RunReport) {
	total := 0
	for i := range report.Sources {
		sr := &report.Sources[i]
		if sr.Err != nil && sr.DisplayName == "" {
			fmt.Fprintf(out, "[ERROR] %s: %v\n", sr.Name, sr.Err)
			if service.IsConfigurationError(sr.Err) {
				fmt.Fprintln(out, "  Run 'collect list' to see registered adapters.")
			}
			continue
		}

		fmt.Fprintf(out, "[%s] Got %d prompts\n", sr.DisplayName, sr.Fetched)
		if sr.FetchErr != nil {
			fmt.Fprintf(out, "[%s] Source unavailable: %v\n", sr.DisplayName, sr.FetchErr)
		}
		if sr.OutputFile != "" {
			fmt.Fprintf(out, "[%s] Saved to %s\n", sr.DisplayName, sr.OutputFile)
		}
		if sr.Filter != nil {
			fmt.Fprintf(out, "  %s\n", sr.Filter)
			printFlagged(out, sr.Blocked, sr.Review)
		}
		if sr.Merge != nil {
			fmt.Fprintf(out, "  Merged: +%d new, %d duplicates, %d total\n",
				sr.Merge.Added, sr.Merge.Skipped, sr.Merge.Total)
		}
		if sr.Published != nil {
			fmt.Fprintf(out, "  Published: %s\n", sr.Published.URL)
		}
		if sr.Err != nil {
			fmt.Fprintf(out, "[ERROR] %s: %v\n", sr.Name, sr.Err)
		}
		total += sr.Fetched
	}

	fmt.Fprintf(out, "\nDone! Total: %d prompts collected\n", total)
	if report.Filter.Total > 0 {
		fmt.Fprintf(out, "%s\n", report.Filter)
	}
}

func printFlagged(out io.Writer, blocked, review []filter.Flagged) {
	if len(blocked) > 0 {
		fmt.Fprintf(out, "  Blocked %d items\n", len(blocked))
		for _, b := range blocked {
			fmt.Fprintf(out, "     - %s: %s...\n", orUnknown(b.Record.ID), b.Record.Preview(60))
		}
	}
	if len(review) > 0 {
		fmt.Fprintf(out, "  Flagged %d items for review (saved to filter log)\n", len(review))
	}
}

func orUnknown(id string) string {
	if id == "" {
		return "?"
	}
	return id
}

// previewLine renders one audit finding.
func previewLine(rec *domain.PromptRecord) string {
	return fmt.Sprintf("  - [%s] %s...", orUnknown(rec.ID), rec.Preview(80))
}
