package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexDeleteYes bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or clear the search table",
}

var indexCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of rows in the search table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader, err := requireLoader()
		if err != nil {
			return err
		}
		n, err := loader.IndexLength(cmd.Context())
		if err != nil {
			return fmt.Errorf("counting rows: %w", err)
		}
		cmd.Printf("Index length: %d\n", n)
		return nil
	},
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove every row from the search table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !indexDeleteYes {
			return errors.New("refusing to delete the index without --yes")
		}
		loader, err := requireLoader()
		if err != nil {
			return err
		}
		if err := loader.DeleteIndex(cmd.Context()); err != nil {
			return fmt.Errorf("deleting index: %w", err)
		}
		cmd.Println("Index deleted.")
		return nil
	},
}

func init() {
	indexDeleteCmd.Flags().BoolVarP(&indexDeleteYes, "yes", "y", false, "confirm deletion")
	indexCmd.AddCommand(indexCountCmd, indexDeleteCmd)
	rootCmd.AddCommand(indexCmd)
}
