package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type TextIngester struct{}

func (t *TextIngester) Ingest(ctx context.Context, source string) (*Content, error) {
	if err := validateFile(source); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", source, err)
	}

	// Normalise line endings so paragraph splitting sees "\n\n".
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, noText(source, "")
	}
	return newContent(text, filepath.Base(source), SourceText), nil
}
