package script

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/apresai/paperpod/internal/fsutil"
)

const scriptExt = ".txt"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug turns a source path into a filesystem-safe base name.
func Slug(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(stem, "_"), "_.")
	if slug == "" {
		return "script"
	}
	return slug
}

func speakerTag(first Persona) string {
	return "_" + first.Name + "_first"
}

// ArtifactName is the script file name for source: {slug}_{First}_first.txt.
func ArtifactName(source string, first Persona) string {
	return Slug(source) + speakerTag(first) + scriptExt
}

// ArtifactPath resolves where a script is written. An empty output or an
// existing directory receives ArtifactName; an explicit file name gets the
// first-speaker tag inserted before its extension when it lacks one.
func ArtifactPath(output, source string, first Persona) string {
	if output == "" {
		return ArtifactName(source, first)
	}
	if info, err := os.Stat(output); (err == nil && info.IsDir()) || strings.HasSuffix(output, string(os.PathSeparator)) {
		return filepath.Join(output, ArtifactName(source, first))
	}

	ext := filepath.Ext(output)
	stem := strings.TrimSuffix(output, ext)
	if strings.HasSuffix(stem, speakerTag(first)) {
		return output
	}
	if ext == "" {
		ext = scriptExt
	}
	return stem + speakerTag(first) + ext
}

// WriteArtifact persists a finished script. The write is atomic, so a
// reader never sees a partial file.
func WriteArtifact(path string, data []byte) error {
	return fsutil.WriteFileAtomic(path, data)
}
