package assembly

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatAssembler_JoinsInOrderSkippingEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "audio", "ep.mp3")
	clips := []Clip{
		{Data: []byte("AAA"), Format: FormatMP3},
		{},
		{Data: []byte("BB"), Format: FormatMP3},
	}

	require.NoError(t, ConcatAssembler{}.Assemble(context.Background(), clips, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "AAABB", string(data))
}

func TestConcatAssembler_AllEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ep.mp3")
	err := ConcatAssembler{}.Assemble(context.Background(), []Clip{{}, {Format: FormatMP3}}, out)

	assert.ErrorIs(t, err, ErrNoClips)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no file may be written")
}

func TestConcatAssembler_RejectsPCM(t *testing.T) {
	err := ConcatAssembler{}.Assemble(context.Background(),
		[]Clip{{Data: []byte{1, 2}, Format: FormatPCM}}, filepath.Join(t.TempDir(), "x.mp3"))
	assert.ErrorContains(t, err, "use ffmpeg")
}

func TestNeedsTranscode(t *testing.T) {
	assert.False(t, NeedsTranscode([]Clip{{Data: []byte("x"), Format: FormatMP3}, {Format: FormatPCM}}))
	assert.True(t, NeedsTranscode([]Clip{{Data: []byte("x"), Format: FormatPCM}}))
}

func TestNew(t *testing.T) {
	a, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "concat", a.Name())

	a, err = New("ffmpeg")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", a.Name())

	_, err = New("sox")
	assert.Error(t, err)
}

func TestBuildConcatList(t *testing.T) {
	list := buildConcatList([]string{"/t/a.mp3", "/t/b.mp3", "/t/c.mp3"}, "/t/silence.mp3")
	lines := strings.Split(strings.TrimSpace(list), "\n")
	assert.Equal(t, []string{
		"file '/t/a.mp3'",
		"file '/t/silence.mp3'",
		"file '/t/b.mp3'",
		"file '/t/silence.mp3'",
		"file '/t/c.mp3'",
	}, lines)
}

func TestFFmpegAssembler_PCMRoundTrip(t *testing.T) {
	a := NewFFmpegAssembler()
	if !a.Available() {
		t.Skip("ffmpeg not installed")
	}

	pcm := make([]byte, 24000*2/10) // 100ms of silence
	out := filepath.Join(t.TempDir(), "ep.mp3")
	err := a.Assemble(context.Background(), []Clip{
		{Data: pcm, Format: FormatPCM},
		{Data: pcm, Format: FormatPCM},
	}, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
