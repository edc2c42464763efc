package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/raphaelgruber/docparse-go/internal/models"
	"github.com/spf13/cobra"
)

var watchStream bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow parse jobs with a live progress display",
	Long: `Watch all jobs on the server until every one of them reaches a terminal
state. By default a progress bar summarizes the batch; --stream prints
each job event as it arrives instead.

Examples:
  docparse watch
  docparse watch --stream`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchStream, "stream", false, "print raw job events instead of a progress bar")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStream {
		return streamEvents()
	}
	return RunBatchProgress(apiClient, nil)
}

func streamEvents() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Streaming job events (Ctrl+C to stop)...")
	err := apiClient.WatchJobs(ctx, func(event models.JobEvent) error {
		job := event.Job
		line := fmt.Sprintf("%s  %-10s %s", job.StartedAt.Format("15:04:05"), job.Status, job.InputPath)
		if job.Error != "" {
			line += ": " + job.Error
		}
		fmt.Println(line)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
