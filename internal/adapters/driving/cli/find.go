package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

var (
	findLimit int
	findJSON  bool
)

var findCmd = &cobra.Command{
	Use:   "find [condition]",
	Short: "Find sponsor trials by condition",
	Long: `Queries the AACT registry database for the sponsor's completed phase 3
trials whose condition or title mentions the given text, newest first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", 10, "maximum number of results")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	if trialSearch == nil {
		return domain.ErrFinderUnavailable
	}

	trials, err := trialSearch.ByCondition(cmd.Context(), strings.Join(args, " "), findLimit)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	if findJSON {
		data, err := json.MarshalIndent(trials, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(trials) == 0 {
		cmd.Println("No trials found.")
		return nil
	}
	for i, t := range trials {
		cmd.Printf("  [%d] %s  %s\n", i+1, t.NCTID, t.BriefTitle)
	}
	return nil
}
