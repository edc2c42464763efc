package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert parsed HTML artifacts to grouped text files",
	Long: `Ask the server to convert every parsed HTML file in its output directory
into a plain-text file where blocks are grouped under their headings.

Examples:
  docparse convert`,
	Args: cobra.NoArgs,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	result, err := apiClient.Convert(context.Background())
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	fmt.Printf("%s: %d files written to %s\n", result.Status, result.Files, result.OutputDirectory)
	return nil
}
