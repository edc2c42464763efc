package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var parseWatch bool

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse every document in the server's input directory",
	Long: `Trigger a parse batch on the server. The server submits each document
(chunking oversized PDFs first), polls the remote API, and writes the
parsed HTML next to the configured output directory.

The command returns as soon as the batch is scheduled. Use --watch to
follow the jobs with a live progress display.

Examples:
  docparse parse
  docparse parse --watch`,
	Args: cobra.NoArgs,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVarP(&parseWatch, "watch", "w", false, "follow job progress until the batch finishes")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := apiClient.StartBatch(ctx)
	if err != nil {
		return fmt.Errorf("start batch: %w", err)
	}

	fmt.Printf("%s (%d jobs)\n", result.Status, len(result.Jobs))
	if len(result.Jobs) == 0 {
		return nil
	}

	if parseWatch {
		return RunBatchProgress(apiClient, result.Jobs)
	}

	if verbose {
		for _, id := range result.Jobs {
			fmt.Printf("  %s\n", id)
		}
	}
	fmt.Println("Use 'docparse jobs' to check status.")
	return nil
}
