package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apresai/paperpod/internal/fsutil"
)

// Audio quality constants for consistent output across all FFmpeg operations.
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
	AudioCodec      = "libmp3lame"
	AudioQuality    = "0" // LAME quality (0 = best)
	AudioResampler  = "aresample=resampler=soxr"

	// SilenceGap is inserted between turns.
	SilenceGap = 200 * time.Millisecond
)

// FFmpegAssembler joins clips with FFmpeg, converting raw PCM to MP3 and
// inserting a short silence between turns.
type FFmpegAssembler struct {
	Binary string // defaults to "ffmpeg"
}

func NewFFmpegAssembler() *FFmpegAssembler {
	return &FFmpegAssembler{Binary: "ffmpeg"}
}

func (a *FFmpegAssembler) Name() string { return "ffmpeg" }

func (a *FFmpegAssembler) bin() string {
	if a.Binary == "" {
		return "ffmpeg"
	}
	return a.Binary
}

// Available reports whether the FFmpeg binary can be found.
func (a *FFmpegAssembler) Available() bool {
	_, err := exec.LookPath(a.bin())
	return err == nil
}

func (a *FFmpegAssembler) Assemble(ctx context.Context, clips []Clip, output string) error {
	clips = nonEmpty(clips)
	if len(clips) == 0 {
		return ErrNoClips
	}

	tmpDir, err := os.MkdirTemp("", "paperpod-audio-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	paths := make([]string, 0, len(clips))
	for i, c := range clips {
		raw := filepath.Join(tmpDir, fmt.Sprintf("turn_%04d.%s", i, c.Format))
		if err := os.WriteFile(raw, c.Data, 0644); err != nil {
			return fmt.Errorf("write turn %d: %w", i, err)
		}
		switch c.Format {
		case FormatMP3:
			paths = append(paths, raw)
		case FormatPCM:
			mp3 := filepath.Join(tmpDir, fmt.Sprintf("turn_%04d.mp3", i))
			if err := a.ConvertToMP3(ctx, raw, c.Format, mp3); err != nil {
				return fmt.Errorf("convert turn %d: %w", i, err)
			}
			paths = append(paths, mp3)
		default:
			return fmt.Errorf("turn %d: unsupported audio format %q", i, c.Format)
		}
	}

	silencePath := filepath.Join(tmpDir, "silence.mp3")
	if err := a.generateSilence(ctx, silencePath); err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(buildConcatList(paths, silencePath)), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	// Render next to the target so the final rename stays on one filesystem.
	staged := filepath.Join(filepath.Dir(output), "."+filepath.Base(output)+".partial.mp3")
	defer os.Remove(staged)
	if err := a.runConcat(ctx, listPath, staged); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return fsutil.Commit(staged, output)
}

func (a *FFmpegAssembler) generateSilence(ctx context.Context, output string) error {
	return a.run(ctx,
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%s:cl=stereo", AudioSampleRate),
		"-t", strconv.FormatFloat(SilenceGap.Seconds(), 'f', -1, 64),
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-y",
		output,
	)
}

func buildConcatList(segments []string, silencePath string) string {
	var lines []string
	for i, seg := range segments {
		lines = append(lines, fmt.Sprintf("file '%s'", seg))
		// Silence between turns, not after the last one
		if i < len(segments)-1 {
			lines = append(lines, fmt.Sprintf("file '%s'", silencePath))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// ConvertToMP3 converts raw audio to MP3. "pcm" input is read as 24kHz
// 16-bit signed little-endian mono; "wav" is auto-detected by FFmpeg.
func (a *FFmpegAssembler) ConvertToMP3(ctx context.Context, input string, format Format, output string) error {
	var args []string
	switch format {
	case FormatPCM:
		args = []string{"-f", "s16le", "-ar", "24000", "-ac", "1", "-i", input}
	case FormatWAV:
		args = []string{"-i", input}
	default:
		return fmt.Errorf("unsupported audio format for conversion: %s", format)
	}
	args = append(args,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-y",
		output,
	)

	if err := a.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg conversion (%s → mp3): %w", format, err)
	}
	return nil
}

func (a *FFmpegAssembler) runConcat(ctx context.Context, listPath string, output string) error {
	err := a.run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-af", AudioResampler,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-q:a", AudioQuality,
		"-ar", AudioSampleRate,
		"-ac", AudioChannels,
		"-f", "mp3",
		"-y",
		output,
	)
	if err != nil {
		return err
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}
	return nil
}

func (a *FFmpegAssembler) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, a.bin(), args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w\n%s", a.bin(), err, stderr.String())
	}
	return nil
}

// ProbeDuration returns the duration of an audio file using ffprobe.
func ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
