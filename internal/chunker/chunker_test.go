package chunker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/docparse-go/internal/models"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name          string
		totalPages    int
		pagesPerChunk int
		wantChunks    int
	}{
		{name: "even split", totalPages: 120, pagesPerChunk: 10, wantChunks: 12},
		{name: "remainder", totalPages: 25, pagesPerChunk: 10, wantChunks: 3},
		{name: "single page", totalPages: 1, pagesPerChunk: 10, wantChunks: 1},
		{name: "exactly one chunk", totalPages: 10, pagesPerChunk: 10, wantChunks: 1},
		{name: "one page per chunk", totalPages: 3, pagesPerChunk: 1, wantChunks: 3},
		{name: "zero pages", totalPages: 0, pagesPerChunk: 10, wantChunks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges := Plan(tt.totalPages, tt.pagesPerChunk)

			if len(ranges) != tt.wantChunks {
				t.Fatalf("Plan() got %d ranges, want %d", len(ranges), tt.wantChunks)
			}

			// Ranges must be contiguous, non-overlapping, and cover all pages.
			next := 1
			sum := 0
			for i, r := range ranges {
				if r.From != next {
					t.Errorf("range[%d] starts at %d, want %d", i, r.From, next)
				}
				if r.To < r.From {
					t.Errorf("range[%d] is inverted: %d-%d", i, r.From, r.To)
				}
				if r.Pages() > tt.pagesPerChunk {
					t.Errorf("range[%d] holds %d pages, max %d", i, r.Pages(), tt.pagesPerChunk)
				}
				sum += r.Pages()
				next = r.To + 1
			}
			if tt.wantChunks > 0 && sum != tt.totalPages {
				t.Errorf("ranges cover %d pages, want %d", sum, tt.totalPages)
			}
		})
	}
}

func TestChunkName(t *testing.T) {
	tests := []struct {
		source string
		index  int
		want   string
	}{
		{"report.pdf", 1, "report_part_1.pdf"},
		{"report.pdf", 12, "report_part_12.pdf"},
		{"scan", 2, "scan_part_2"},
		{"a.b.pdf", 3, "a.b_part_3.pdf"},
	}

	for _, tt := range tests {
		if got := ChunkName(tt.source, tt.index); got != tt.want {
			t.Errorf("ChunkName(%q, %d) = %q, want %q", tt.source, tt.index, got, tt.want)
		}
	}
}

func TestShouldChunk(t *testing.T) {
	c := New(nil, Config{SizeThreshold: 100, PagesPerChunk: 10}, nil)

	if c.ShouldChunk(models.Document{Path: "a.pdf", Size: 99}) {
		t.Error("document below threshold should not be chunked")
	}
	if !c.ShouldChunk(models.Document{Path: "a.pdf", Size: 100}) {
		t.Error("document at threshold should be chunked")
	}
}

// fakeSplitter writes empty chunk files and records extraction calls.
type fakeSplitter struct {
	pages    int
	countErr error
	calls    []PageRange
}

func (f *fakeSplitter) CountPages(path string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pages, nil
}

func (f *fakeSplitter) ExtractPages(src, dst string, from, to int) error {
	f.calls = append(f.calls, PageRange{From: from, To: to})
	return os.WriteFile(dst, []byte(fmt.Sprintf("pages %d-%d", from, to)), 0644)
}

func TestSplit(t *testing.T) {
	staging := t.TempDir()
	splitter := &fakeSplitter{pages: 25}
	c := New(splitter, Config{SizeThreshold: 0, PagesPerChunk: 10, StagingDir: staging}, nil)

	chunks, err := c.Split(context.Background(), models.Document{Path: "/in/report.pdf", Size: 1})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i+1 {
			t.Errorf("chunk[%d].Index = %d, want %d", i, chunk.Index, i+1)
		}
		if chunk.SourceName != "report.pdf" {
			t.Errorf("chunk[%d].SourceName = %q", i, chunk.SourceName)
		}
		want := filepath.Join(staging, fmt.Sprintf("report_part_%d.pdf", i+1))
		if chunk.Path != want {
			t.Errorf("chunk[%d].Path = %q, want %q", i, chunk.Path, want)
		}
		if _, err := os.Stat(chunk.Path); err != nil {
			t.Errorf("chunk[%d] not materialized: %v", i, err)
		}
	}

	if len(splitter.calls) != 3 {
		t.Fatalf("got %d extract calls, want 3", len(splitter.calls))
	}
	if splitter.calls[2] != (PageRange{From: 21, To: 25}) {
		t.Errorf("last extract call = %+v, want pages 21-25", splitter.calls[2])
	}
}

func TestSplit_MalformedInput(t *testing.T) {
	splitter := &fakeSplitter{countErr: errors.New("not a pdf")}
	c := New(splitter, Config{PagesPerChunk: 10, StagingDir: t.TempDir()}, nil)

	_, err := c.Split(context.Background(), models.Document{Path: "/in/garbage.bin", Size: 1})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("Split() error = %v, want ErrMalformedInput", err)
	}
}

func TestSplit_CreatesStagingDir(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "nested", "staging")
	splitter := &fakeSplitter{pages: 2}
	c := New(splitter, Config{PagesPerChunk: 10, StagingDir: staging}, nil)

	if _, err := c.Split(context.Background(), models.Document{Path: "/in/a.pdf", Size: 1}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if _, err := os.Stat(staging); err != nil {
		t.Fatalf("staging dir not created: %v", err)
	}
}
