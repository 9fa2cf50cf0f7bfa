// Package assembly joins per-turn audio clips into the episode file.
package assembly

import (
	"context"
	"errors"
	"fmt"

	"github.com/apresai/paperpod/internal/fsutil"
)

// Format is the encoding of a clip.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatPCM Format = "pcm"
	FormatWAV Format = "wav"
)

// ErrNoClips is returned when every clip is empty.
var ErrNoClips = errors.New("no audio clips to assemble")

// Clip is the synthesized audio for one turn. Empty clips are skipped.
type Clip struct {
	Data   []byte
	Format Format
}

// Assembler writes clips, in order, to a single output file.
type Assembler interface {
	Name() string
	Assemble(ctx context.Context, clips []Clip, output string) error
}

// New returns the assembler registered under name: "concat" (default) or "ffmpeg".
func New(name string) (Assembler, error) {
	switch name {
	case "", "concat":
		return ConcatAssembler{}, nil
	case "ffmpeg":
		return NewFFmpegAssembler(), nil
	default:
		return nil, fmt.Errorf("unknown assembler %q: choose concat or ffmpeg", name)
	}
}

// NeedsTranscode reports whether any non-empty clip must go through FFmpeg.
func NeedsTranscode(clips []Clip) bool {
	for _, c := range clips {
		if len(c.Data) > 0 && c.Format != FormatMP3 {
			return true
		}
	}
	return false
}

// ConcatAssembler joins MP3 clips byte-for-byte. MP3 frames are
// self-delimiting, so the result plays back as one stream.
type ConcatAssembler struct{}

func (ConcatAssembler) Name() string { return "concat" }

func (ConcatAssembler) Assemble(_ context.Context, clips []Clip, output string) error {
	clips = nonEmpty(clips)
	if len(clips) == 0 {
		return ErrNoClips
	}

	size := 0
	for i, c := range clips {
		if c.Format != FormatMP3 {
			return fmt.Errorf("turn %d: concat assembler cannot join %s audio, use ffmpeg", i, c.Format)
		}
		size += len(c.Data)
	}

	buf := make([]byte, 0, size)
	for _, c := range clips {
		buf = append(buf, c.Data...)
	}
	return fsutil.WriteFileAtomic(output, buf)
}

func nonEmpty(clips []Clip) []Clip {
	out := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if len(c.Data) > 0 {
			out = append(out, c)
		}
	}
	return out
}
