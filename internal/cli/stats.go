package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server operation metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := apiClient.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}

		var pretty map[string]any
		if err := json.Unmarshal(raw, &pretty); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
