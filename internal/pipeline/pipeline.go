// Package pipeline runs the three paperpod stages: PDF to script, script to
// metadata, and script to audio.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/catalog"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/retry"
	"github.com/apresai/paperpod/internal/script"
	"github.com/apresai/paperpod/internal/tts"
)

// Stage names used in errors, progress and the archive.
const (
	StageScript   = "script"
	StageMetadata = "metadata"
	StageAudio    = "audio"
)

type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Settings are the tunables shared by all stages.
type Settings struct {
	Show   script.Show
	Roster script.Roster
	Plan   script.Plan

	// Opener is "random", "" (also random) or a host name.
	Opener      string
	Pause       time.Duration
	TailWords   int
	MaxTokens   int
	Temperature float64
	TopP        float64

	ScriptPolicy retry.Policy
	AudioPolicy  retry.Policy

	// RequestsPerMinute caps synthesis calls; zero means unlimited.
	RequestsPerMinute int

	MetadataDir string
	AudioDir    string
	HTML        bool
}

// Deps are the collaborators a Pipeline talks to. LLM is needed by the
// script and metadata stages, TTS and Assembler by the audio stage.
type Deps struct {
	LLM       llm.Client
	TTS       tts.Provider
	Assembler assembly.Assembler
	Catalog   *catalog.Catalog
	Logger    *slog.Logger
	Progress  progress.Callback

	// Sleep waits between segment requests. Defaults to a timer that
	// honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// IntN picks the random opener. Defaults to math/rand/v2.
	IntN func(n int) int
}

// Pipeline runs stages with one configuration.
type Pipeline struct {
	settings Settings
	deps     Deps
}

func New(settings Settings, deps Deps) *Pipeline {
	if settings.Show.Name == "" {
		settings.Show = script.DefaultShow()
	}
	if settings.Roster.A.Name == "" {
		settings.Roster = script.DefaultRoster()
	}
	if len(settings.Plan) == 0 {
		settings.Plan = script.DefaultPlan()
	}
	if settings.TailWords == 0 {
		settings.TailWords = script.DefaultTailWords
	}
	if settings.ScriptPolicy.MaxAttempts == 0 {
		settings.ScriptPolicy = retry.Default()
	}
	if settings.AudioPolicy.MaxAttempts == 0 {
		settings.AudioPolicy = retry.Default()
		settings.AudioPolicy.Retryable = retry.IsRetryable
	}
	if settings.MetadataDir == "" {
		settings.MetadataDir = "metadata"
	}
	if settings.AudioDir == "" {
		settings.AudioDir = "audio"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Progress == nil {
		deps.Progress = progress.NopCallback
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	if deps.IntN == nil {
		deps.IntN = rand.IntN
	}
	return &Pipeline{settings: settings, deps: deps}
}

// Roster returns the hosts this pipeline writes and voices.
func (p *Pipeline) Roster() script.Roster { return p.settings.Roster }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pipeline) emit(e progress.Event) {
	p.deps.Progress(e)
}

func (p *Pipeline) require(stage string, ok bool, what string) error {
	if ok {
		return nil
	}
	return &PipelineError{Stage: stage, Message: what + " is not configured"}
}

// BeginRun records the start of a run in the archive, when one is configured.
func (p *Pipeline) BeginRun(ctx context.Context, source string) {
	var llmName, ttsName string
	if p.deps.LLM != nil {
		llmName = p.deps.LLM.Name()
	}
	if p.deps.TTS != nil {
		ttsName = p.deps.TTS.Name()
	}
	p.deps.Catalog.Begin(ctx, source, llmName, ttsName)
}

// FinishRun marks the archived run complete, or failed when err is non-nil.
func (p *Pipeline) FinishRun(ctx context.Context, err error) {
	p.deps.Catalog.Finish(ctx, err)
}
