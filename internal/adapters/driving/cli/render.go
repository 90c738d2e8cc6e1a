package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

var renderFor string

var renderCmd = &cobra.Command{
	Use:   "render <nct-id>",
	Short: "Show the document a trial normalises to",
	Long: `Fetches and normalises one trial without embedding or writing it, then
prints the document text, the metadata hidden from each consumer and the
number of chunks it would produce.

--for selects the rendering: all (default), llm, embed or none.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderFor, "for", "all", "rendering: all, llm, embed or none")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	loader, err := requireLoader()
	if err != nil {
		return err
	}

	mode, err := parseMetadataMode(renderFor)
	if err != nil {
		return err
	}

	preview, err := loader.Preview(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	doc := preview.Document
	cmd.Println(doc.Render(mode))
	cmd.Println()
	cmd.Printf("Hidden from LLM: %s\n", joinKeys(doc.LLMHiddenKeys))
	cmd.Printf("Hidden from embedding: %s\n", joinKeys(doc.EmbedHiddenKeys))
	cmd.Printf("Chunks: %d\n", len(preview.Chunks))
	return nil
}

func parseMetadataMode(s string) (domain.MetadataMode, error) {
	switch strings.ToLower(s) {
	case "all", "":
		return domain.MetadataModeAll, nil
	case "llm":
		return domain.MetadataModeLLM, nil
	case "embed":
		return domain.MetadataModeEmbed, nil
	case "none":
		return domain.MetadataModeNone, nil
	default:
		return 0, fmt.Errorf("%w: unknown rendering %q", domain.ErrInvalidInput, s)
	}
}

func joinKeys(s domain.KeySet) string {
	if s.Len() == 0 {
		return "(none)"
	}
	return strings.Join(s.Keys(), ", ")
}
