// Package discover finds the single input file a stage works on when no
// explicit path is given.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNoDirectory        = errors.New("input directory not found")
	ErrNoCandidates       = errors.New("no candidate input files")
	ErrMultipleCandidates = errors.New("multiple candidate input files")
)

// Error describes a discovery failure. It wraps one of the sentinel errors.
type Error struct {
	Dir        string
	Exts       []string
	Candidates []string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoDirectory):
		return fmt.Sprintf("directory '%s' not found", e.Dir)
	case errors.Is(e.Err, ErrMultipleCandidates):
		return fmt.Sprintf("multiple %s files found in '%s' (%s); keep exactly one or pass --input",
			strings.Join(e.Exts, "/"), e.Dir, strings.Join(e.Candidates, ", "))
	default:
		return fmt.Sprintf("no %s files found in '%s'", strings.Join(e.Exts, "/"), e.Dir)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsDiscovery reports whether err is a discovery failure, which a stage
// reports and then exits without doing any work.
func IsDiscovery(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// Candidates lists regular, non-hidden files in dir whose extension matches
// one of exts (case-insensitive), sorted by name.
func Candidates(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Dir: dir, Exts: exts, Err: ErrNoDirectory}
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if matchExt(e.Name(), exts) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Single returns the only matching file in dir, or an *Error when the
// directory is missing or holds zero or several candidates.
func Single(dir string, exts ...string) (string, error) {
	files, err := Candidates(dir, exts...)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", &Error{Dir: dir, Exts: exts, Err: ErrNoCandidates}
	case 1:
		return files[0], nil
	default:
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		return "", &Error{Dir: dir, Exts: exts, Candidates: names, Err: ErrMultipleCandidates}
	}
}

// Resolve returns explicit when set, otherwise the single candidate in dir.
func Resolve(explicit, dir string, exts ...string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return Single(dir, exts...)
}

// DefaultOutput derives an output path in dir from input's base name:
// DefaultOutput("scripts/x_Vic_first.txt", "metadata", "_metadata", ".txt")
// is "metadata/x_Vic_first_metadata.txt".
func DefaultOutput(input, dir, suffix, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, stem+suffix+ext)
}

func matchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
