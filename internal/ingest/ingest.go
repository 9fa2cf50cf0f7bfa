// Package ingest extracts plain text from the source document of an episode.
// Extraction failures are fatal for a run: there is nothing to talk about.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type SourceType string

const (
	SourceURL  SourceType = "url"
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"

	// maxInputSize caps local files and downloaded pages (25 MB).
	maxInputSize = 25 * 1024 * 1024

	maxTitleLen = 80
)

// ErrNoText is wrapped when a source holds nothing but whitespace, such as a
// scanned PDF without a text layer.
var ErrNoText = errors.New("no extractable text")

// Content is the extracted text of a source document.
type Content struct {
	Text         string
	Title        string
	Source       string
	Type         SourceType
	WordCount    int
	Pages        int
	SkippedPages int // pages that failed to extract
}

type Ingester interface {
	Ingest(ctx context.Context, source string) (*Content, error)
}

// DetectSource classifies input: http(s) URLs, then .pdf files, then
// anything else as plain text.
func DetectSource(input string) SourceType {
	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceURL
	case filepath.Ext(lower) == ".pdf":
		return SourcePDF
	default:
		return SourceText
	}
}

// Ingest extracts text from source with the ingester for its type.
func Ingest(ctx context.Context, source string) (*Content, error) {
	var in Ingester
	switch DetectSource(source) {
	case SourceURL:
		in = &URLIngester{}
	case SourcePDF:
		in = &PDFIngester{}
	default:
		in = &TextIngester{}
	}
	return in.Ingest(ctx, source)
}

// Extensions lists the file extensions accepted as local sources.
func Extensions() []string {
	return []string{".pdf", ".txt", ".md"}
}

func newContent(text, source string, typ SourceType) *Content {
	return &Content{
		Text:      text,
		Title:     firstLine(text),
		Source:    source,
		Type:      typ,
		WordCount: len(strings.Fields(text)),
	}
}

// firstLine is the fallback title: the first non-blank line, shortened.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxTitleLen {
			return string(r[:maxTitleLen]) + "..."
		}
		return line
	}
	return "Untitled"
}

func noText(source string, hint string) error {
	if hint != "" {
		return fmt.Errorf("%s: %w (%s)", source, ErrNoText, hint)
	}
	return fmt.Errorf("%s: %w", source, ErrNoText)
}

// validateFile rejects directories and empty or oversized files before any
// parsing starts.
func validateFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return fmt.Errorf("cannot access %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("%s is a directory, not a file", path)
	case info.Size() == 0:
		return fmt.Errorf("file %s is empty", path)
	case info.Size() > maxInputSize:
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()>>20, maxInputSize>>20)
	}
	return nil
}
