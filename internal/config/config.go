// Package config loads paperpod settings: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/retry"
	"github.com/apresai/paperpod/internal/script"
	"github.com/apresai/paperpod/internal/tts"
)

// DefaultPath is read when no --config flag is given. A missing default file
// is not an error.
const DefaultPath = "paperpod.yaml"

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Script   ScriptConfig   `yaml:"script"`
	Metadata MetadataConfig `yaml:"metadata"`
	Audio    AudioConfig    `yaml:"audio"`
	Paths    PathsConfig    `yaml:"paths"`
	Logging  LoggingConfig  `yaml:"logging"`
	AWS      AWSConfig      `yaml:"aws"`

	// Keys are only ever read from the environment or Secrets Manager.
	Keys Keys `yaml:"-"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"PAPERPOD_LLM"`
	Model       string  `yaml:"model" env:"PAPERPOD_LLM_MODEL"`
	BaseURL     string  `yaml:"base_url" env:"PAPERPOD_LLM_BASE_URL"`
	MaxTokens   int     `yaml:"max_tokens" env:"PAPERPOD_LLM_MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" env:"PAPERPOD_LLM_TEMPERATURE"`
	TopP        float64 `yaml:"top_p" env:"PAPERPOD_LLM_TOP_P"`
}

type TTSConfig struct {
	Provider          string  `yaml:"provider" env:"PAPERPOD_TTS"`
	Model             string  `yaml:"model" env:"PAPERPOD_TTS_MODEL"`
	BaseURL           string  `yaml:"base_url" env:"PAPERPOD_TTS_BASE_URL"`
	PrimaryVoice      string  `yaml:"primary_voice" env:"PAPERPOD_VOICE_PRIMARY"`
	SecondaryVoice    string  `yaml:"secondary_voice" env:"PAPERPOD_VOICE_SECONDARY"`
	Speed             float64 `yaml:"speed" env:"PAPERPOD_TTS_SPEED"`
	Pitch             float64 `yaml:"pitch" env:"PAPERPOD_TTS_PITCH"`
	GCPProject        string  `yaml:"gcp_project" env:"GCP_PROJECT"`
	GCPRegion         string  `yaml:"gcp_region" env:"GCP_REGION"`
	RequestsPerMinute int     `yaml:"requests_per_minute" env:"PAPERPOD_TTS_RPM"`
}

type PersonaConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Voice       string `yaml:"voice"`
}

type ScriptConfig struct {
	Pause       time.Duration        `yaml:"pause" env:"PAPERPOD_SCRIPT_PAUSE"`
	TailWords   int                  `yaml:"tail_words" env:"PAPERPOD_TAIL_WORDS"`
	Opener      string               `yaml:"opener" env:"PAPERPOD_OPENER"` // "random" or a host name
	MaxAttempts int                  `yaml:"max_attempts" env:"PAPERPOD_SCRIPT_MAX_ATTEMPTS"`
	Strict      bool                 `yaml:"strict" env:"PAPERPOD_SCRIPT_STRICT"`
	Personas    []PersonaConfig      `yaml:"personas"`
	Plan        []script.SegmentSpec `yaml:"plan"`
}

type MetadataConfig struct {
	HTML bool `yaml:"html" env:"PAPERPOD_METADATA_HTML"`
}

type AudioConfig struct {
	Assembler   string `yaml:"assembler" env:"PAPERPOD_ASSEMBLER"` // "concat" or "ffmpeg"
	MaxAttempts int    `yaml:"max_attempts" env:"PAPERPOD_AUDIO_MAX_ATTEMPTS"`
}

type PathsConfig struct {
	PDFs     string `yaml:"pdfs" env:"PAPERPOD_PDF_DIR"`
	Scripts  string `yaml:"scripts" env:"PAPERPOD_SCRIPT_DIR"`
	Metadata string `yaml:"metadata" env:"PAPERPOD_METADATA_DIR"`
	Audio    string `yaml:"audio" env:"PAPERPOD_AUDIO_DIR"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"PAPERPOD_LOG_LEVEL"`
	Format string `yaml:"format" env:"PAPERPOD_LOG_FORMAT"`
}

type AWSConfig struct {
	Region        string `yaml:"region" env:"AWS_REGION"`
	Bucket        string `yaml:"bucket" env:"PAPERPOD_S3_BUCKET"`
	Table         string `yaml:"table" env:"PAPERPOD_DYNAMODB_TABLE"`
	SecretsPrefix string `yaml:"secrets_prefix" env:"PAPERPOD_SECRETS_PREFIX"`
}

type Keys struct {
	OpenAI     string `env:"OPENAI_API_KEY"`
	Anthropic  string `env:"ANTHROPIC_API_KEY"`
	Gemini     string `env:"GEMINI_API_KEY"`
	ElevenLabs string `env:"ELEVENLABS_API_KEY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			MaxTokens:   script.DefaultMaxTokens,
			Temperature: script.DefaultTemperature,
			TopP:        script.DefaultTopP,
		},
		TTS: TTSConfig{
			Provider: "elevenlabs",
		},
		Script: ScriptConfig{
			Pause:       3 * time.Second,
			TailWords:   script.DefaultTailWords,
			Opener:      "random",
			MaxAttempts: 3,
		},
		Audio: AudioConfig{
			Assembler:   "concat",
			MaxAttempts: 3,
		},
		Paths: PathsConfig{
			PDFs:     "pdfs",
			Scripts:  "scripts",
			Metadata: "metadata",
			Audio:    "audio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment, then validates it. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file; defaults and environment only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider names and structural settings. It does not check
// API keys; see RequireKeys.
func (c *Config) Validate() error {
	if !slices.Contains(llm.ProviderNames(), c.LLM.Provider) {
		return fmt.Errorf("llm.provider %q is not one of %s", c.LLM.Provider, strings.Join(llm.ProviderNames(), ", "))
	}
	if !slices.Contains(tts.ProviderNames(), c.TTS.Provider) {
		return fmt.Errorf("tts.provider %q is not one of %s", c.TTS.Provider, strings.Join(tts.ProviderNames(), ", "))
	}
	if _, err := assembly.New(c.Audio.Assembler); err != nil {
		return fmt.Errorf("audio.assembler: %w", err)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if c.Script.Pause < 0 {
		return fmt.Errorf("script.pause must not be negative")
	}
	if c.Script.TailWords < 0 {
		return fmt.Errorf("script.tail_words must not be negative")
	}
	if c.TTS.RequestsPerMinute < 0 {
		return fmt.Errorf("tts.requests_per_minute must not be negative")
	}
	if len(c.Script.Personas) != 0 && len(c.Script.Personas) != 2 {
		return fmt.Errorf("script.personas must list exactly two hosts (got %d)", len(c.Script.Personas))
	}

	roster := c.Roster()
	if err := roster.Validate(); err != nil {
		return fmt.Errorf("script.personas: %w", err)
	}
	if o := c.Script.Opener; o != "" && o != "random" {
		if _, ok := roster.Lookup(o); !ok {
			return fmt.Errorf("script.opener %q is neither \"random\" nor a host name", o)
		}
	}
	if len(c.Script.Plan) > 0 {
		if err := script.Plan(c.Script.Plan).Validate(); err != nil {
			return fmt.Errorf("script.plan: %w", err)
		}
	}
	return nil
}

// Roster returns the configured hosts, or the default pair.
func (c *Config) Roster() script.Roster {
	if len(c.Script.Personas) != 2 {
		return script.DefaultRoster()
	}
	toPersona := func(p PersonaConfig) script.Persona {
		return script.Persona{Name: p.Name, Description: p.Description, Voice: p.Voice}
	}
	return script.Roster{A: toPersona(c.Script.Personas[0]), B: toPersona(c.Script.Personas[1])}
}

// Plan returns the configured segment plan, or the default plan.
func (c *Config) Plan() script.Plan {
	if len(c.Script.Plan) == 0 {
		return script.DefaultPlan()
	}
	return script.Plan(c.Script.Plan)
}

// ScriptPolicy is the retry policy for segment generation.
func (c *Config) ScriptPolicy() retry.Policy {
	p := retry.Default()
	if c.Script.Strict {
		p = retry.Strict()
	}
	if c.Script.MaxAttempts > 0 {
		p.MaxAttempts = c.Script.MaxAttempts
	}
	return p
}

// AudioPolicy is the retry policy for per-turn synthesis. Only transient
// provider errors are retried.
func (c *Config) AudioPolicy() retry.Policy {
	p := retry.Default()
	if c.Audio.MaxAttempts > 0 {
		p.MaxAttempts = c.Audio.MaxAttempts
	}
	p.Retryable = retry.IsRetryable
	return p
}

// LLMAPIKey returns the key for the configured text-generation provider.
func (c *Config) LLMAPIKey() string {
	return c.Keys.lookup(llm.APIKeyEnv(c.LLM.Provider))
}

// TTSAPIKey returns the key for the configured speech provider.
func (c *Config) TTSAPIKey() string {
	return c.Keys.lookup(tts.APIKeyEnv(c.TTS.Provider))
}

func (k Keys) lookup(envName string) string {
	switch envName {
	case "OPENAI_API_KEY":
		return k.OpenAI
	case "ANTHROPIC_API_KEY":
		return k.Anthropic
	case "GEMINI_API_KEY":
		return k.Gemini
	case "ELEVENLABS_API_KEY":
		return k.ElevenLabs
	}
	return ""
}

func (k *Keys) set(envName, value string) {
	switch envName {
	case "OPENAI_API_KEY":
		k.OpenAI = value
	case "ANTHROPIC_API_KEY":
		k.Anthropic = value
	case "GEMINI_API_KEY":
		k.Gemini = value
	case "ELEVENLABS_API_KEY":
		k.ElevenLabs = value
	}
}

// MissingKeysError lists credentials a stage needs but does not have.
type MissingKeysError struct {
	Stage string
	Keys  []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s stage needs %s: set %s in the environment",
		e.Stage, plural(len(e.Keys), "an API key", "API keys"), strings.Join(e.Keys, " and "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Stage names accepted by RequireKeys.
const (
	StageScript   = "script"
	StageMetadata = "metadata"
	StageAudio    = "audio"
)

// RequireKeys checks, before any network call, that every credential the
// given stages need is present.
func (c *Config) RequireKeys(stages ...string) error {
	missing := map[string]bool{}
	for _, stage := range stages {
		switch stage {
		case StageScript, StageMetadata:
			if name := llm.APIKeyEnv(c.LLM.Provider); name != "" && c.LLMAPIKey() == "" {
				missing[name] = true
			}
		case StageAudio:
			name := tts.APIKeyEnv(c.TTS.Provider)
			vertex := c.TTS.Provider == "gemini" && c.TTS.GCPProject != ""
			if name != "" && !vertex && c.TTSAPIKey() == "" {
				missing[name] = true
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &MissingKeysError{Stage: strings.Join(stages, "+"), Keys: keys}
}
