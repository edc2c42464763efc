// Package models defines data structures shared across the docparse pipeline.
package models

import "path/filepath"

// Document is a discovered input file: a path plus its byte size.
// Immutable once discovered.
type Document struct {
	Path string
	Size int64
}

// Name returns the base name of the document.
func (d Document) Name() string {
	return filepath.Base(d.Path)
}

// Chunk is a page-bounded sub-document produced when an input exceeds the
// size threshold. Index is 1-based; SourceName identifies the document the
// chunk was split from and is used for naming only.
type Chunk struct {
	Document
	Index      int
	SourceName string
}
