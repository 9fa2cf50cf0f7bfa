package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestSingle_OneCandidate(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "paper_Vic_first.txt"))
	touch(t, filepath.Join(dir, "notes.md"))
	touch(t, filepath.Join(dir, ".hidden.txt"))

	got, err := Single(dir, ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "paper_Vic_first.txt"), got)
}

func TestSingle_CaseInsensitiveExt(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Paper.PDF"))

	got, err := Single(dir, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Paper.PDF"), got)
}

func TestSingle_TwoCandidates(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.pdf"))
	touch(t, filepath.Join(dir, "b.pdf"))

	_, err := Single(dir, ".pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipleCandidates)
	assert.True(t, IsDiscovery(err))
	assert.Contains(t, err.Error(), "a.pdf, b.pdf")
}

func TestSingle_NoCandidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	_, err := Single(dir, ".txt")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSingle_MissingDirectory(t *testing.T) {
	_, err := Single(filepath.Join(t.TempDir(), "scripts"), ".txt")
	assert.ErrorIs(t, err, ErrNoDirectory)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolve_ExplicitWins(t *testing.T) {
	got, err := Resolve("given.pdf", "/does/not/exist", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, "given.pdf", got)
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, filepath.Join("metadata", "x_Vic_first_metadata.txt"),
		DefaultOutput("scripts/x_Vic_first.txt", "metadata", "_metadata", ".txt"))
	assert.Equal(t, filepath.Join("audio", "x_Vic_first.mp3"),
		DefaultOutput("scripts/x_Vic_first.txt", "audio", "", ".mp3"))
}
