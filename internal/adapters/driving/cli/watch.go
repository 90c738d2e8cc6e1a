package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

var errWatchUnavailable = errors.New("watch needs registry.local_dir to be set")

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Append records as they appear in the local records directory",
	Long: `Watches registry.local_dir for <nct-id>.json files that are created or
rewritten and appends them to the search table in batches. Runs until
interrupted.`,
	Args:        cobra.NoArgs,
	RunE:        runWatch,
	Annotations: map[string]string{annotationCheckProviders: "true"},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if trialWatcher == nil {
		return errWatchUnavailable
	}

	cmd.Println("Watching for records... (Ctrl+C to stop)")
	return trialWatcher.Watch(cmd.Context(), func(report *domain.LoadReport, err error) {
		if err != nil {
			cmd.PrintErrf("Append failed: %v\n", err)
			return
		}
		printReport(cmd, report)
	})
}
