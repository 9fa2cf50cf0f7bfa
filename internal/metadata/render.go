package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/apresai/paperpod/internal/fsutil"
	"github.com/apresai/paperpod/internal/script"
)

// RenderHTML converts the episode's show notes to HTML.
func RenderHTML(e Episode, hosts []script.Persona) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(e.Markdown(hosts)), &buf); err != nil {
		return "", fmt.Errorf("render show notes: %w", err)
	}
	return buf.String(), nil
}

// HTMLPath places the show notes next to the metadata file.
func HTMLPath(metadataPath string) string {
	return strings.TrimSuffix(metadataPath, ".txt") + ".html"
}

// WriteHTML renders and writes the show notes for e.
func WriteHTML(path string, e Episode, hosts []script.Persona) error {
	html, err := RenderHTML(e, hosts)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, []byte(html))
}
