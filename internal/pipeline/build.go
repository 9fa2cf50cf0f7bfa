package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/catalog"
	"github.com/apresai/paperpod/internal/config"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/script"
	"github.com/apresai/paperpod/internal/tts"
)

// SettingsFromConfig maps the loaded configuration onto stage settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Show:              script.DefaultShow(),
		Roster:            cfg.Roster(),
		Plan:              cfg.Plan(),
		Opener:            cfg.Script.Opener,
		Pause:             cfg.Script.Pause,
		TailWords:         cfg.Script.TailWords,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		TopP:              cfg.LLM.TopP,
		ScriptPolicy:      cfg.ScriptPolicy(),
		AudioPolicy:       cfg.AudioPolicy(),
		RequestsPerMinute: cfg.TTS.RequestsPerMinute,
		MetadataDir:       cfg.Paths.Metadata,
		AudioDir:          cfg.Paths.Audio,
		HTML:              cfg.Metadata.HTML,
	}
}

// VoicesFromConfig picks each host's voice: explicit tts voices first, then
// the persona's own voice. Empty entries fall back to provider defaults.
func VoicesFromConfig(cfg *config.Config) tts.VoiceMap {
	roster := cfg.Roster()
	pick := func(explicit, persona string) tts.Voice {
		if explicit != "" {
			return tts.Voice{ID: explicit}
		}
		return tts.Voice{ID: persona}
	}
	return tts.VoiceMap{
		Primary:   pick(cfg.TTS.PrimaryVoice, roster.A.Voice),
		Secondary: pick(cfg.TTS.SecondaryVoice, roster.B.Voice),
	}
}

// Build checks credentials for stages and creates the clients they need.
// The returned close function releases the speech provider.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, cb progress.Callback, stages ...string) (*Pipeline, func() error, error) {
	if err := cfg.RequireKeys(stages...); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	deps := Deps{Logger: logger, Progress: cb}
	closer := func() error { return nil }

	for _, stage := range stages {
		switch stage {
		case StageScript, StageMetadata:
			if deps.LLM != nil {
				continue
			}
			client, err := llm.New(ctx, llm.Config{
				Provider: cfg.LLM.Provider,
				Model:    cfg.LLM.Model,
				APIKey:   cfg.LLMAPIKey(),
				BaseURL:  cfg.LLM.BaseURL,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("create %s client: %w", cfg.LLM.Provider, err)
			}
			deps.LLM = client

		case StageAudio:
			provider, err := tts.NewProvider(ctx, cfg.TTS.Provider, VoicesFromConfig(cfg), tts.ProviderConfig{
				APIKey:  cfg.TTSAPIKey(),
				BaseURL: cfg.TTS.BaseURL,
				Model:   cfg.TTS.Model,
				Region:  ttsRegion(cfg),
				Project: cfg.TTS.GCPProject,
				Speed:   cfg.TTS.Speed,
				Pitch:   cfg.TTS.Pitch,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("create %s provider: %w", cfg.TTS.Provider, err)
			}
			asm, err := assembly.New(cfg.Audio.Assembler)
			if err != nil {
				provider.Close()
				return nil, nil, err
			}
			deps.TTS = provider
			deps.Assembler = asm
			closer = provider.Close

		default:
			return nil, nil, fmt.Errorf("unknown stage %q", stage)
		}
	}

	cat, err := catalog.Open(ctx, catalog.Settings{
		Region: cfg.AWS.Region,
		Bucket: cfg.AWS.Bucket,
		Table:  cfg.AWS.Table,
	}, logger)
	if err != nil {
		// Archiving is optional; the run goes ahead without it.
		logger.WarnContext(ctx, "archive disabled", "error", err)
	}
	deps.Catalog = cat

	return New(SettingsFromConfig(cfg), deps), closer, nil
}

func ttsRegion(cfg *config.Config) string {
	if cfg.TTS.Provider == "polly" {
		return cfg.AWS.Region
	}
	return cfg.TTS.GCPRegion
}
