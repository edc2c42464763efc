package chunker

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfSplitter implements PageSplitter using pdfcpu.
type pdfSplitter struct{}

// Compile-time check that pdfSplitter implements PageSplitter.
var _ PageSplitter = pdfSplitter{}

func (pdfSplitter) CountPages(path string) (int, error) {
	return api.PageCountFile(path)
}

func (pdfSplitter) ExtractPages(src, dst string, from, to int) error {
	return api.TrimFile(src, dst, []string{fmt.Sprintf("%d-%d", from, to)}, nil)
}
