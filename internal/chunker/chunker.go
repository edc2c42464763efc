// Package chunker splits oversized input documents into page-bounded
// sub-documents the remote parse service can accept.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/docparse-go/internal/models"
)

// ErrMalformedInput indicates a document could not be parsed into pages.
var ErrMalformedInput = errors.New("malformed input document")

// PageRange is an inclusive, 1-based page span within a source document.
type PageRange struct {
	From int
	To   int
}

// Pages returns the number of pages the range covers.
func (r PageRange) Pages() int {
	return r.To - r.From + 1
}

// PageSplitter abstracts the PDF toolkit used to count and extract pages.
type PageSplitter interface {
	// CountPages returns the total page count of the document at path.
	CountPages(path string) (int, error)
	// ExtractPages writes pages [from, to] of src as a standalone document at dst.
	ExtractPages(src, dst string, from, to int) error
}

// Config defines chunking parameters.
type Config struct {
	// SizeThreshold: only chunk documents at or above this byte size.
	SizeThreshold int64
	// PagesPerChunk: maximum page count per chunk.
	PagesPerChunk int
	// StagingDir: where chunk files are materialized.
	StagingDir string
}

// Chunker materializes page-bounded chunks of oversized documents.
type Chunker struct {
	splitter PageSplitter
	cfg      Config
	logger   *slog.Logger
}

// New creates a Chunker. If splitter is nil, the pdfcpu-backed splitter is used.
func New(splitter PageSplitter, cfg Config, logger *slog.Logger) *Chunker {
	if splitter == nil {
		splitter = pdfSplitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{splitter: splitter, cfg: cfg, logger: logger}
}

// ShouldChunk reports whether doc exceeds the configured size threshold.
func (c *Chunker) ShouldChunk(doc models.Document) bool {
	return doc.Size >= c.cfg.SizeThreshold
}

// Plan computes the ordered page ranges for a document with totalPages pages.
// Ranges are contiguous, non-overlapping, cover every page in order, and each
// holds at most pagesPerChunk pages.
func Plan(totalPages, pagesPerChunk int) []PageRange {
	if totalPages <= 0 || pagesPerChunk <= 0 {
		return nil
	}

	ranges := make([]PageRange, 0, (totalPages+pagesPerChunk-1)/pagesPerChunk)
	for from := 1; from <= totalPages; from += pagesPerChunk {
		to := from + pagesPerChunk - 1
		if to > totalPages {
			to = totalPages
		}
		ranges = append(ranges, PageRange{From: from, To: to})
	}
	return ranges
}

// ChunkName returns the deterministic file name for the i-th (1-based) chunk
// of the named source document.
func ChunkName(sourceName string, index int) string {
	ext := filepath.Ext(sourceName)
	base := strings.TrimSuffix(sourceName, ext)
	return fmt.Sprintf("%s_part_%d%s", base, index, ext)
}

// Split materializes doc's pages as chunk files in the staging directory,
// creating it if absent. Returns the chunks in page order. Returns
// ErrMalformedInput when the source cannot be parsed into pages.
func (c *Chunker) Split(ctx context.Context, doc models.Document) ([]models.Chunk, error) {
	totalPages, err := c.splitter.CountPages(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, doc.Path, err)
	}
	if totalPages <= 0 {
		return nil, fmt.Errorf("%w: %s: no pages", ErrMalformedInput, doc.Path)
	}

	if err := os.MkdirAll(c.cfg.StagingDir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	ranges := Plan(totalPages, c.cfg.PagesPerChunk)
	chunks := make([]models.Chunk, 0, len(ranges))

	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := ChunkName(doc.Name(), i+1)
		dst := filepath.Join(c.cfg.StagingDir, name)
		if err := c.splitter.ExtractPages(doc.Path, dst, r.From, r.To); err != nil {
			return nil, fmt.Errorf("extract pages %d-%d of %s: %w", r.From, r.To, doc.Path, err)
		}

		info, err := os.Stat(dst)
		if err != nil {
			return nil, fmt.Errorf("stat chunk %s: %w", dst, err)
		}

		chunks = append(chunks, models.Chunk{
			Document:   models.Document{Path: dst, Size: info.Size()},
			Index:      i + 1,
			SourceName: doc.Name(),
		})
	}

	c.logger.Info("document split into chunks",
		"source", doc.Path,
		"pages", totalPages,
		"chunks", len(chunks))

	return chunks, nil
}
