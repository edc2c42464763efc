// Package textgroup converts parsed HTML artifacts into grouped plain-text
// files: headings open a group, following block text is collected beneath it.
package textgroup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Group is one heading plus the text blocks that follow it.
type Group struct {
	Heading string
	Blocks  []string
}

// GroupHTML parses html and groups its text content by headings (h1-h6).
// Text appearing before the first heading forms a leading group with an
// empty heading. Empty blocks are dropped.
func GroupHTML(html string) ([]Group, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var groups []Group
	current := Group{}

	flush := func() {
		if current.Heading != "" || len(current.Blocks) > 0 {
			groups = append(groups, current)
		}
	}

	doc.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		text := strings.TrimSpace(s.Text())

		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flush()
			current = Group{Heading: text}
		default:
			if text != "" {
				current.Blocks = append(current.Blocks, text)
			}
		}
	})
	flush()

	return groups, nil
}

// Render formats groups as plain text: heading line, block lines, and a
// blank line between groups.
func Render(groups []Group) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		if g.Heading != "" {
			b.WriteString(g.Heading)
			b.WriteString("\n")
		}
		for _, block := range g.Blocks {
			b.WriteString(block)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Converter turns every .html artifact in a directory into a grouped .txt file.
type Converter struct {
	logger *slog.Logger
}

// NewConverter creates a Converter.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger}
}

// ConvertDir converts each .html file under inputDir into a .txt file under
// outputDir, creating outputDir if absent. Returns the number of files
// written. A file that fails to convert is logged and skipped.
func (c *Converter) ConvertDir(inputDir, outputDir string) (int, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return 0, fmt.Errorf("read output dir: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("create text dir: %w", err)
	}

	converted := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}

		src := filepath.Join(inputDir, entry.Name())
		dst := filepath.Join(outputDir, strings.TrimSuffix(entry.Name(), ".html")+".txt")

		if err := c.convertFile(src, dst); err != nil {
			c.logger.Error("failed to convert artifact", "input", src, "error", err)
			continue
		}
		converted++
	}

	c.logger.Info("conversion finished", "files", converted, "output_dir", outputDir)
	return converted, nil
}

func (c *Converter) convertFile(src, dst string) error {
	html, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	groups, err := GroupHTML(string(html))
	if err != nil {
		return err
	}

	if err := os.WriteFile(dst, []byte(Render(groups)), 0644); err != nil {
		return fmt.Errorf("write text file: %w", err)
	}
	return nil
}
