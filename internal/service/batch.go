package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/raphaelgruber/docparse-go/internal/chunker"
	"github.com/raphaelgruber/docparse-go/internal/metrics"
	"github.com/raphaelgruber/docparse-go/internal/models"
)

// BatchConfig tunes the orchestrator.
type BatchConfig struct {
	InputDir    string
	OutputDir   string
	Concurrency int
	// PollTimeout bounds a single pipeline run; 0 leaves it unbounded.
	PollTimeout time.Duration
}

// Batch discovers input documents and fans out one pipeline run per document
// or chunk onto a bounded worker pool, without waiting for completion.
type Batch struct {
	cfg       BatchConfig
	chunker   *chunker.Chunker
	pipeline  *Pipeline
	jobs      *JobManager
	collector *metrics.Collector
	pool      *ants.Pool
	logger    *slog.Logger
}

// NewBatch creates the orchestrator and its worker pool.
func NewBatch(cfg BatchConfig, ch *chunker.Chunker, pipeline *Pipeline, jobs *JobManager, collector *metrics.Collector, logger *slog.Logger) (*Batch, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Batch{
		cfg:       cfg,
		chunker:   ch,
		pipeline:  pipeline,
		jobs:      jobs,
		collector: collector,
		pool:      pool,
		logger:    logger,
	}, nil
}

// Start enumerates every regular file in the input directory, decides
// chunk-or-whole routing per file, and schedules one independent pipeline run
// per resulting document. It returns the scheduled job IDs immediately;
// per-document outcomes are observable only through the job registry and
// logs. A document that cannot be chunked is skipped and logged without
// affecting its siblings.
func (b *Batch) Start(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var jobIDs []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			b.logger.Error("failed to stat input", "name", entry.Name(), "error", err)
			continue
		}

		doc := models.Document{
			Path: filepath.Join(b.cfg.InputDir, entry.Name()),
			Size: info.Size(),
		}

		if b.chunker.ShouldChunk(doc) {
			var chunks []models.Chunk
			err := b.collector.Time(metrics.OpChunk, func() error {
				var err error
				chunks, err = b.chunker.Split(ctx, doc)
				return err
			})
			if err != nil {
				b.logger.Error("failed to chunk document", "input", doc.Path, "error", err)
				continue
			}
			for _, c := range chunks {
				jobIDs = append(jobIDs, b.register(c.Document))
			}
			continue
		}

		jobIDs = append(jobIDs, b.register(doc))
	}

	// Dispatch off the caller's goroutine: pool.Submit blocks while every
	// worker is busy, and a queued document must not delay the batch
	// acknowledgment behind a running pipeline's poll loop.
	go b.dispatch(jobIDs)

	b.logger.Info("batch started", "inputs", len(entries), "jobs", len(jobIDs))
	return jobIDs, nil
}

// register creates the job handle for one document. The pipeline run is
// handed to the pool later by dispatch.
func (b *Batch) register(doc models.Document) string {
	target := filepath.Join(b.cfg.OutputDir, doc.Name()+"_parsed")
	job := b.jobs.Create(doc.Path, target)
	return job.ID
}

// dispatch feeds the registered jobs to the worker pool in order, blocking
// only this goroutine when the pool is saturated.
func (b *Batch) dispatch(jobIDs []string) {
	for _, id := range jobIDs {
		jobID := id
		err := b.pool.Submit(func() {
			b.execute(jobID)
		})
		if err != nil {
			b.logger.Error("failed to schedule pipeline", "job_id", jobID, "error", err)
			b.jobs.Fail(jobID, fmt.Sprintf("schedule: %v", err))
		}
	}
}

// execute runs one pipeline. The run gets its own context so a wait suspends
// only that pipeline.
func (b *Batch) execute(jobID string) {
	ctx := context.Background()
	if b.cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.PollTimeout)
		defer cancel()
	}

	// Run logs and records its own failures; nothing escalates here.
	_ = b.pipeline.Run(ctx, jobID)
}

// Release shuts down the worker pool. Pending runs are abandoned; the Batch
// must not be used afterwards.
func (b *Batch) Release() {
	b.pool.Release()
}
