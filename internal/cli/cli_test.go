package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/config"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/pipeline"
	"github.com/apresai/paperpod/internal/tts"
)

func zeroFlags() {
	flagConfig, flagVerbose, flagLLM, flagModel, flagTTS = "", false, "", "", ""
	flagLogLevel, flagInput, flagOutput, flagHTML = "", "", "", false
}

func resetFlags(t *testing.T) {
	t.Helper()
	zeroFlags()
	t.Cleanup(zeroFlags)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PAPERPOD_LLM", "PAPERPOD_LLM_MODEL", "PAPERPOD_TTS", "PAPERPOD_ASSEMBLER",
		"PAPERPOD_PDF_DIR", "PAPERPOD_SCRIPT_DIR", "PAPERPOD_SECRETS_PREFIX",
		"PAPERPOD_S3_BUCKET", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "ELEVENLABS_API_KEY",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	resetFlags(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "paperpod dev\n", out)
}

func TestScript_NoPDFDirectoryIsNotAnError(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	t.Chdir(t.TempDir())

	out, err := execute(t, "script")
	require.NoError(t, err)
	assert.Contains(t, out, "directory 'pdfs' not found")
}

func TestAudio_MultipleScriptsIsNotAnError(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Mkdir("scripts", 0755))
	for _, name := range []string{"a_Vic_first.txt", "b_Alex_first.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join("scripts", name), []byte("hi"), 0644))
	}

	out, err := execute(t, "audio")
	require.NoError(t, err)
	assert.Contains(t, out, "multiple")
	assert.Contains(t, out, "a_Vic_first.txt")
}

func TestScript_MissingKeysFailBeforeWork(t *testing.T) {
	resetFlags(t)
	clearEnv(t)
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("pdfs", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("pdfs", "paper.pdf"), []byte("%PDF-1.4"), 0644))

	_, err := execute(t, "script")
	var missing *config.MissingKeysError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Keys, "OPENAI_API_KEY")

	_, statErr := os.Stat("scripts")
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
}

func TestApplyFlags(t *testing.T) {
	resetFlags(t)

	cfg := config.Default()
	cfg.LLM.Model = "gpt-4o-mini"
	flagLLM = "claude"
	flagTTS = "polly"
	flagHTML = true
	require.NoError(t, applyFlags(cfg))
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model, "a model for another provider is dropped")
	assert.Equal(t, "polly", cfg.TTS.Provider)
	assert.True(t, cfg.Metadata.HTML)

	flagModel = "sonnet"
	require.NoError(t, applyFlags(cfg))
	assert.Equal(t, "sonnet", cfg.LLM.Model)

	flagTTS = "espeak"
	assert.Error(t, applyFlags(cfg))
}

func TestLogLevel(t *testing.T) {
	resetFlags(t)
	cfg := config.Default()

	assert.Equal(t, "warn", logLevel(cfg))
	flagVerbose = true
	assert.Equal(t, "debug", logLevel(cfg))
	flagLogLevel = "error"
	assert.Equal(t, "error", logLevel(cfg))
}

func TestListVoices(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listVoices(&out, []string{"polly"}))

	text := out.String()
	assert.Contains(t, text, "AMAZON POLLY")
	assert.Contains(t, text, "DESCRIPTION")
	assert.Contains(t, text, "default primary")

	assert.Error(t, listVoices(io.Discard, []string{"espeak"}))
}

func TestCheckFFmpeg_NotNeeded(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Assembler = "concat"
	cfg.TTS.Provider = "elevenlabs"
	a := &app{cfg: cfg}
	assert.NoError(t, a.checkFFmpeg())
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "2 KB", formatSize(2048))
	assert.Equal(t, "1.5 MB", formatSize(3*1024*1024/2))
}

type fakeLLM struct{ calls int }

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(context.Context, llm.Request) (string, error) {
	f.calls++
	return "Welcome back, I'm Vic.\n\nAnd I'm Alex. Let's dig in.", nil
}

type fakeTTS struct{}

func (fakeTTS) Name() string { return "fake-tts" }

func (fakeTTS) Voices() tts.VoiceMap { return tts.VoiceMap{} }

func (fakeTTS) Close() error { return nil }

func (fakeTTS) Synthesize(_ context.Context, text string, _ tts.Voice) (tts.AudioResult, error) {
	return tts.AudioResult{Data: []byte(text), Format: tts.FormatMP3}, nil
}

func TestEpisode_RunsAllStages(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "Attention_Is_All_You_Need.txt")
	require.NoError(t, os.WriteFile(source, []byte(strings.Repeat("Transformers use attention. ", 200)), 0644))

	cfg := config.Default()
	cfg.Paths.Scripts = filepath.Join(dir, "scripts")
	cfg.Paths.Metadata = filepath.Join(dir, "metadata")
	cfg.Paths.Audio = filepath.Join(dir, "audio")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	settings := pipeline.SettingsFromConfig(cfg)
	settings.Pause = 0
	lm := &fakeLLM{}
	p := pipeline.New(settings, pipeline.Deps{
		LLM:       lm,
		TTS:       fakeTTS{},
		Assembler: assembly.ConcatAssembler{},
		Logger:    logger,
		Sleep:     func(context.Context, time.Duration) error { return nil },
	})

	a := &app{cfg: cfg, logger: logger, out: io.Discard}
	out, err := a.episode(context.Background(), p, source)
	require.NoError(t, err)

	require.Len(t, out.artifacts, 3)
	assert.Equal(t, filepath.Join(cfg.Paths.Scripts, "Attention_Is_All_You_Need_Vic_first.txt"), out.artifacts[0])
	assert.Equal(t, filepath.Join(cfg.Paths.Metadata, "Attention_Is_All_You_Need_Vic_first_metadata.txt"), out.artifacts[1])
	assert.Equal(t, filepath.Join(cfg.Paths.Audio, "Attention_Is_All_You_Need_Vic_first.mp3"), out.artifacts[2])
	for _, path := range out.artifacts {
		assert.FileExists(t, path)
	}
	assert.Zero(t, out.warnings)
	assert.Equal(t, len(cfg.Plan())+2, lm.calls, "one call per segment plus title and description")

	var buf bytes.Buffer
	printOutcome(&buf, out.event(time.Now()))
	assert.Contains(t, buf.String(), "Episode ready")
}

func TestEpisode_ScriptFailureStopsRun(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Scripts = t.TempDir()
	p := pipeline.New(pipeline.SettingsFromConfig(cfg), pipeline.Deps{LLM: &fakeLLM{}})

	a := &app{cfg: cfg, out: io.Discard}
	_, err := a.episode(context.Background(), p, filepath.Join(t.TempDir(), "missing.pdf"))
	var perr *pipeline.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, pipeline.StageScript, perr.Stage)
}
