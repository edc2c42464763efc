package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect parse jobs",
	Long: `List all parse jobs known to the server or inspect a specific job by ID.

Examples:
  docparse jobs           # List all jobs
  docparse jobs a1b2c3d4  # Show details for job a1b2c3d4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := apiClient.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-12s %-10s %s\n", "ID", "STATUS", "STARTED", "INPUT")
	fmt.Println("------------------------------------------------------------------------")

	for _, job := range jobs {
		started := job.StartedAt.Format("15:04:05")
		fmt.Printf("%-10s %-12s %-10s %s\n", job.ID, job.Status, started, job.InputPath)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Input: %s\n", job.InputPath)
	fmt.Printf("  Output: %s\n", job.OutputTarget)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.RequestID != "" {
		fmt.Printf("  Request ID: %s\n", job.RequestID)
	}
	fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration: %s\n", duration.Round(time.Second))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}

	return nil
}
