package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
)

var (
	loadMode          string
	loadIDs           []string
	loadSponsorTrials bool
)

var loadCmd = &cobra.Command{
	Use:   "load [nct-id...]",
	Short: "Load trials into the search index",
	Long: `Fetches the given trials, normalises and chunks them, embeds the chunks
and writes them to the search table.

--mode is required:
  reload   replace the table contents with this batch
  append   merge this batch into the table; reloaded trials replace their old chunks

Ids can be given as arguments, with --ids, or taken from the registry
database with --sponsor-trials.`,
	RunE:        runLoad,
	Annotations: map[string]string{annotationCheckProviders: "true"},
}

func init() {
	loadCmd.Flags().StringVarP(&loadMode, "mode", "m", "", "load mode: reload or append (required)")
	loadCmd.Flags().StringSliceVar(&loadIDs, "ids", nil, "comma-separated NCT IDs")
	loadCmd.Flags().BoolVar(&loadSponsorTrials, "sponsor-trials", false, "load the sponsor's completed phase 3 trials")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	loader, err := requireLoader()
	if err != nil {
		return err
	}

	mode, err := domain.ParseLoadMode(loadMode)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ids := append(append([]string{}, args...), loadIDs...)
	if loadSponsorTrials {
		if trialSearch == nil {
			return domain.ErrFinderUnavailable
		}
		found, err := trialSearch.SponsorTrials(ctx)
		if err != nil {
			return fmt.Errorf("finding sponsor trials: %w", err)
		}
		cmd.Printf("Found %d sponsor trials.\n", len(found))
		ids = append(ids, found...)
	}
	if len(ids) == 0 {
		return errors.New("no trial ids given")
	}

	cmd.Printf("Loading %d trials (%s)...\n", len(ids), mode)
	report, err := loadWithProgress(ctx, cmd, loader, ids, mode)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// loadWithProgress runs the load while displaying progress on a terminal.
func loadWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	loader driving.TrialLoader,
	ids []string,
	mode domain.LoadMode,
) (*domain.LoadReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	type result struct {
		report *domain.LoadReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := loader.Load(ctx, ids, mode)
		done <- result{report, err}
	}()

	interactive := isTerminal(cmd.OutOrStdout())
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			if interactive {
				cmd.Print("\r\033[K")
			}
			return r.report, r.err
		case <-ticker.C:
			if interactive {
				cmd.Printf("\r\033[K%s", progressLine(loader.Status()))
			}
		}
	}
}

func progressLine(s driving.LoadStatus) string {
	switch s.Stage {
	case domain.LoadStageFetching:
		return fmt.Sprintf("Fetching... %d/%d records", s.RecordsFetched, s.RecordsTotal)
	case domain.LoadStageEmbedding:
		return fmt.Sprintf("Embedding... %d/%d chunks", s.ChunksEmbedded, s.ChunksTotal)
	case "":
		return "Working..."
	default:
		stage := string(s.Stage)
		return strings.ToUpper(stage[:1]) + stage[1:] + "..."
	}
}

func printReport(cmd *cobra.Command, r *domain.LoadReport) {
	cmd.Printf("Loaded %d documents as %d chunks; wrote %d rows in %s.\n",
		r.Documents, r.Chunks, r.RowsWritten, r.Duration.Round(time.Millisecond))
	if len(r.Rejected) > 0 {
		cmd.Printf("Skipped %d chunks rejected by the embedding provider:\n", len(r.Rejected))
		for _, rej := range r.Rejected {
			cmd.Printf("  - %s\n", rej.Error())
		}
	}
	cmd.Printf("Index length: %d\n", r.IndexLength)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
