package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raphaelgruber/docparse-go/internal/chunker"
	"github.com/raphaelgruber/docparse-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSplitter reports a fixed page count and writes placeholder chunk files.
type stubSplitter struct {
	pages    int
	countErr error
}

func (s stubSplitter) CountPages(path string) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.pages, nil
}

func (s stubSplitter) ExtractPages(src, dst string, from, to int) error {
	return os.WriteFile(dst, []byte(fmt.Sprintf("pages %d-%d", from, to)), 0644)
}

func writeInput(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644))
}

func newTestBatch(t *testing.T, inputDir, outputDir string, splitter chunker.PageSplitter, remote Remote) (*Batch, *JobManager) {
	t.Helper()

	jobs := NewJobManager(nil)
	ch := chunker.New(splitter, chunker.Config{
		SizeThreshold: 1024,
		PagesPerChunk: 10,
		StagingDir:    filepath.Join(t.TempDir(), "chunks"),
	}, nil)
	pipeline := NewPipeline(remote, jobs, nil, nil)

	batch, err := NewBatch(BatchConfig{
		InputDir:    inputDir,
		OutputDir:   outputDir,
		Concurrency: 4,
	}, ch, pipeline, jobs, nil, nil)
	require.NoError(t, err)
	t.Cleanup(batch.Release)

	return batch, jobs
}

func waitForTerminal(t *testing.T, jobs *JobManager, ids []string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, id := range ids {
			job, ok := jobs.Get(id)
			if !ok || !job.Status.Terminal() {
				return false
			}
		}
		return true
	}, 5*time.Second, 5*time.Millisecond)
}

func TestBatch_OneJobPerSmallDocument(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeInput(t, inputDir, "a.pdf", 10)
	writeInput(t, inputDir, "b.pdf", 10)

	batch, jobs := newTestBatch(t, inputDir, outputDir, stubSplitter{pages: 1}, &fakeRemote{html: "<p>hi</p>"})

	ids, err := batch.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2, "one job per sub-threshold document")

	waitForTerminal(t, jobs, ids)

	for _, name := range []string{"a.pdf_parsed.html", "b.pdf_parsed.html"} {
		content, err := os.ReadFile(filepath.Join(outputDir, name))
		require.NoError(t, err)
		assert.Equal(t, "<p>hi</p>", string(content))
	}
}

func TestBatch_OversizedDocumentIsChunked(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeInput(t, inputDir, "big.pdf", 4096) // above the 1 KiB test threshold

	// 25 pages at 10 pages per chunk: 3 chunks, 3 jobs.
	batch, jobs := newTestBatch(t, inputDir, outputDir, stubSplitter{pages: 25}, &fakeRemote{html: "<p>hi</p>"})

	ids, err := batch.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 3)

	waitForTerminal(t, jobs, ids)

	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("big_part_%d.pdf_parsed.html", i)
		_, err := os.Stat(filepath.Join(outputDir, name))
		assert.NoError(t, err, "expected artifact %s", name)
	}
}

func TestBatch_MalformedInputIsolated(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeInput(t, inputDir, "big.pdf", 4096) // chunking will fail
	writeInput(t, inputDir, "ok.pdf", 10)

	splitter := stubSplitter{countErr: errors.New("not a pdf")}
	batch, jobs := newTestBatch(t, inputDir, outputDir, splitter, &fakeRemote{html: "<p>hi</p>"})

	ids, err := batch.Start(context.Background())
	require.NoError(t, err, "a malformed document must not abort the batch")
	require.Len(t, ids, 1, "only the healthy sibling is scheduled")

	waitForTerminal(t, jobs, ids)

	job, _ := jobs.Get(ids[0])
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestBatch_FailureDoesNotAffectSiblings(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	writeInput(t, inputDir, "corrupt.pdf", 10) // fakeRemote fails this one at poll
	writeInput(t, inputDir, "fine.pdf", 10)

	batch, jobs := newTestBatch(t, inputDir, outputDir, stubSplitter{pages: 1}, &fakeRemote{html: "<p>hi</p>"})

	ids, err := batch.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)

	waitForTerminal(t, jobs, ids)

	var completed, failed int
	for _, id := range ids {
		job, _ := jobs.Get(id)
		switch job.Status {
		case models.JobStatusCompleted:
			completed++
		case models.JobStatusFailed:
			failed++
			assert.Contains(t, job.Error, "corrupt file")
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)

	// Only the healthy document produced an artifact.
	_, err = os.Stat(filepath.Join(outputDir, "fine.pdf_parsed.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputDir, "corrupt.pdf_parsed.html"))
	assert.True(t, os.IsNotExist(err))
}

// gatedRemote parks every poll until release is closed, keeping pipelines
// in flight for as long as the test wants.
type gatedRemote struct {
	release chan struct{}
}

func (r *gatedRemote) Submit(ctx context.Context, path string) (string, error) {
	return "req-" + filepath.Base(path), nil
}

func (r *gatedRemote) Poll(ctx context.Context, requestID string) (string, error) {
	select {
	case <-r.release:
		return "http://results/" + requestID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *gatedRemote) Download(ctx context.Context, downloadURL string) (string, error) {
	return "<p>hi</p>", nil
}

func TestBatch_StartDoesNotWaitForRunningPipelines(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		writeInput(t, inputDir, name, 10)
	}

	remote := &gatedRemote{release: make(chan struct{})}
	jobs := NewJobManager(nil)
	ch := chunker.New(stubSplitter{pages: 1}, chunker.Config{
		SizeThreshold: 1024,
		PagesPerChunk: 10,
		StagingDir:    filepath.Join(t.TempDir(), "chunks"),
	}, nil)
	pipeline := NewPipeline(remote, jobs, nil, nil)

	// One worker and three documents: scheduling must still not wait on
	// the pipeline occupying the pool.
	batch, err := NewBatch(BatchConfig{
		InputDir:    inputDir,
		OutputDir:   outputDir,
		Concurrency: 1,
	}, ch, pipeline, jobs, nil, nil)
	require.NoError(t, err)
	t.Cleanup(batch.Release)

	type startResult struct {
		ids []string
		err error
	}
	done := make(chan startResult, 1)
	go func() {
		ids, err := batch.Start(context.Background())
		done <- startResult{ids, err}
	}()

	var result startResult
	select {
	case result = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked on a running pipeline instead of returning the scheduled jobs")
	}
	require.NoError(t, result.err)
	require.Len(t, result.ids, 3, "every document gets a job handle before any pipeline finishes")

	// Nothing has finished yet; the pool is parked inside the gated poll.
	for _, id := range result.ids {
		job, ok := jobs.Get(id)
		require.True(t, ok)
		assert.False(t, job.Status.Terminal())
	}

	close(remote.release)
	waitForTerminal(t, jobs, result.ids)

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		_, err := os.Stat(filepath.Join(outputDir, name+"_parsed.html"))
		assert.NoError(t, err)
	}
}

func TestBatch_SkipsDirectories(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(inputDir, "nested"), 0755))
	writeInput(t, inputDir, "a.pdf", 10)

	batch, _ := newTestBatch(t, inputDir, t.TempDir(), stubSplitter{pages: 1}, &fakeRemote{html: ""})

	ids, err := batch.Start(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestBatch_MissingInputDir(t *testing.T) {
	batch, _ := newTestBatch(t, filepath.Join(t.TempDir(), "absent"), t.TempDir(), stubSplitter{pages: 1}, &fakeRemote{})

	_, err := batch.Start(context.Background())
	require.Error(t, err)
}
