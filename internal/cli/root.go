// Package cli provides the command-line interface for docparse.
package cli

import (
	"github.com/raphaelgruber/docparse-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	verbose   bool

	// REST client for the docparse server
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docparse",
	Short: "Batch document parsing client",
	Long: `Docparse submits documents to a remote document-parse API, polls each
request until it reaches a terminal state, and downloads the parsed HTML.

Oversized PDFs are split into page-range chunks before submission, and
parsed HTML can be converted into heading-grouped text files.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "docparse server URL (default DOCPARSE_SERVER_URL or http://localhost:8000)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
