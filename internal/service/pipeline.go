package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/docparse-go/internal/metrics"
)

// Remote is the surface of the document-parse service the pipeline uses.
type Remote interface {
	Submit(ctx context.Context, path string) (string, error)
	Poll(ctx context.Context, requestID string) (string, error)
	Download(ctx context.Context, downloadURL string) (string, error)
}

// Pipeline runs one document through submit, poll-until-terminal, and result
// assembly. Stages within a run are strictly sequential; separate runs are
// independent and isolate their failures from each other.
type Pipeline struct {
	remote    Remote
	jobs      *JobManager
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewPipeline creates a pipeline backed by the given remote client.
func NewPipeline(remote Remote, jobs *JobManager, collector *metrics.Collector, logger *slog.Logger) *Pipeline {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		remote:    remote,
		jobs:      jobs,
		collector: collector,
		logger:    logger,
	}
}

// Run executes the full pipeline for the job with the given ID. The job ends
// in a terminal state either way; the returned error exists for logging only
// and is never escalated past the run's own pipeline.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, ok := p.jobs.Get(jobID)
	if !ok {
		return fmt.Errorf("unknown job %s", jobID)
	}

	var requestID string
	err := p.collector.Time(metrics.OpSubmit, func() error {
		var err error
		requestID, err = p.remote.Submit(ctx, job.InputPath)
		return err
	})
	if err != nil {
		p.fail(jobID, job.InputPath, err)
		return err
	}
	p.jobs.SetRequestID(jobID, requestID)

	var downloadURL string
	err = p.collector.Time(metrics.OpPoll, func() error {
		var err error
		downloadURL, err = p.remote.Poll(ctx, requestID)
		return err
	})
	if err != nil {
		p.fail(jobID, job.InputPath, err)
		return err
	}

	var html string
	err = p.collector.Time(metrics.OpDownload, func() error {
		var err error
		html, err = p.remote.Download(ctx, downloadURL)
		return err
	})
	if err != nil {
		p.fail(jobID, job.InputPath, err)
		return err
	}

	path, err := WriteArtifact(job.OutputTarget, html)
	if err != nil {
		p.fail(jobID, job.InputPath, err)
		return err
	}

	p.jobs.Complete(jobID)
	p.logger.Info("result saved", "job_id", jobID, "input", job.InputPath, "output", path)
	return nil
}

func (p *Pipeline) fail(jobID, inputPath string, err error) {
	p.logger.Error("pipeline failed", "job_id", jobID, "input", inputPath, "error", err)
	p.jobs.Fail(jobID, err.Error())
}

// WriteArtifact writes html to target, appending a ".html" suffix when the
// target lacks one. Re-running with the same target overwrites prior content.
// Returns the final artifact path.
func WriteArtifact(target, html string) (string, error) {
	if !strings.HasSuffix(target, ".html") {
		target += ".html"
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := os.WriteFile(target, []byte(html), 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return target, nil
}
