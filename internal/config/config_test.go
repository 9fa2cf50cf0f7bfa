package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/paperpod/internal/script"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PAPERPOD_LLM", "PAPERPOD_LLM_MODEL", "PAPERPOD_TTS", "PAPERPOD_OPENER",
		"PAPERPOD_SCRIPT_PAUSE", "PAPERPOD_ASSEMBLER", "PAPERPOD_PDF_DIR",
		"PAPERPOD_SECRETS_PREFIX", "GCP_PROJECT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "ELEVENLABS_API_KEY",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paperpod.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "elevenlabs", cfg.TTS.Provider)
	assert.Equal(t, 3*time.Second, cfg.Script.Pause)
	assert.Equal(t, "pdfs", cfg.Paths.PDFs)
	assert.Equal(t, "scripts", cfg.Paths.Scripts)
	assert.Equal(t, "metadata", cfg.Paths.Metadata)
	assert.Equal(t, "audio", cfg.Paths.Audio)
	assert.Len(t, cfg.Plan(), 4)
	assert.Equal(t, "Vic", cfg.Roster().A.Name)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
llm:
  provider: claude
  temperature: 0.5
script:
  pause: 1500ms
  opener: Alex
paths:
  pdfs: papers
`)
	t.Setenv("PAPERPOD_LLM", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider, "environment overrides the file")
	assert.Equal(t, 0.5, cfg.LLM.Temperature)
	assert.Equal(t, 1500*time.Millisecond, cfg.Script.Pause)
	assert.Equal(t, "Alex", cfg.Script.Opener)
	assert.Equal(t, "papers", cfg.Paths.PDFs)
	assert.Equal(t, "scripts", cfg.Paths.Scripts, "unset keys keep defaults")
	assert.Equal(t, "g-key", cfg.LLMAPIKey())
}

func TestLoad_CustomPersonasAndPlan(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
script:
  opener: Sam
  personas:
    - name: Sam
      description: host
      voice: v1
    - name: Jo
      description: guest
  plan:
    - name: Open
      words: 100
      slice: none
      role: opening
    - name: Close
      words: 50
      slice: none
      role: closing
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	roster := cfg.Roster()
	assert.Equal(t, "Sam", roster.A.Name)
	assert.Equal(t, "v1", roster.A.Voice)
	assert.Equal(t, "Jo", roster.B.Name)
	assert.Len(t, cfg.Plan(), 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"unknown tts", func(c *Config) { c.TTS.Provider = "espeak" }, "tts.provider"},
		{"unknown assembler", func(c *Config) { c.Audio.Assembler = "sox" }, "audio.assembler"},
		{"negative pause", func(c *Config) { c.Script.Pause = -time.Second }, "script.pause"},
		{"one persona", func(c *Config) { c.Script.Personas = []PersonaConfig{{Name: "Solo"}} }, "exactly two"},
		{"duplicate personas", func(c *Config) {
			c.Script.Personas = []PersonaConfig{{Name: "Sam"}, {Name: "Sam"}}
		}, "distinct"},
		{"unknown opener", func(c *Config) { c.Script.Opener = "Zed" }, "script.opener"},
		{"bad plan", func(c *Config) {
			c.Script.Plan = []script.SegmentSpec{{Name: "x", Words: 0, Slice: script.SliceNone, Role: script.RoleBody}}
		}, "script.plan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestRequireKeys(t *testing.T) {
	cfg := Default()

	err := cfg.RequireKeys(StageScript, StageAudio)
	var missing *MissingKeysError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"ELEVENLABS_API_KEY", "OPENAI_API_KEY"}, missing.Keys)
	assert.Contains(t, err.Error(), "API keys")

	cfg.Keys.OpenAI = "sk"
	assert.NoError(t, cfg.RequireKeys(StageScript, StageMetadata))
	assert.ErrorContains(t, cfg.RequireKeys(StageAudio), "ELEVENLABS_API_KEY")

	cfg.TTS.Provider = "polly"
	assert.NoError(t, cfg.RequireKeys(StageAudio), "polly uses the AWS credential chain")

	cfg.TTS.Provider = "gemini"
	assert.Error(t, cfg.RequireKeys(StageAudio))
	cfg.TTS.GCPProject = "my-project"
	assert.NoError(t, cfg.RequireKeys(StageAudio), "vertex uses application default credentials")

	cfg.LLM.Provider = "nova"
	cfg.Keys.OpenAI = ""
	assert.NoError(t, cfg.RequireKeys(StageScript))
}

func TestPolicies(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.ScriptPolicy().Degrade)

	cfg.Script.Strict = true
	cfg.Script.MaxAttempts = 5
	p := cfg.ScriptPolicy()
	assert.False(t, p.Degrade)
	assert.Equal(t, 5, p.MaxAttempts)

	ap := cfg.AudioPolicy()
	require.NotNil(t, ap.Retryable)
	assert.False(t, ap.Retryable(errors.New("bad request")))
}

type fakeSecrets struct {
	values map[string]string
	asked  []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = append(f.asked, *in.SecretId)
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestFillSecrets(t *testing.T) {
	cfg := Default()
	cfg.AWS.SecretsPrefix = "paperpod/"
	cfg.Keys.OpenAI = "from-env"

	fake := &fakeSecrets{values: map[string]string{
		"paperpod/OPENAI_API_KEY":     "from-secrets",
		"paperpod/ELEVENLABS_API_KEY": "el-key",
	}}
	cfg.fillSecrets(context.Background(), fake, nil)

	assert.Equal(t, "from-env", cfg.Keys.OpenAI, "keys already set are not overwritten")
	assert.Equal(t, "el-key", cfg.Keys.ElevenLabs)
	assert.Empty(t, cfg.Keys.Gemini)
	assert.NotContains(t, fake.asked, "paperpod/OPENAI_API_KEY")
}

func TestLoadSecrets_NoPrefixIsNoop(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.LoadSecrets(context.Background(), nil))
}
