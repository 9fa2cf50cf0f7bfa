package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/paperpod/internal/config"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Script.Strict = true
	cfg.Paths.Audio = "out/audio"

	s := SettingsFromConfig(cfg)
	assert.Equal(t, "Vic", s.Roster.A.Name)
	assert.Len(t, s.Plan, 4)
	assert.Equal(t, cfg.Script.Pause, s.Pause)
	assert.False(t, s.ScriptPolicy.Degrade)
	assert.True(t, s.AudioPolicy.Degrade)
	assert.Equal(t, "out/audio", s.AudioDir)
}

func TestVoicesFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Script.Personas = []config.PersonaConfig{{Name: "Sam", Voice: "sam-voice"}, {Name: "Jo", Voice: "jo-voice"}}
	cfg.TTS.SecondaryVoice = "override"

	v := VoicesFromConfig(cfg)
	assert.Equal(t, "sam-voice", v.Primary.ID)
	assert.Equal(t, "override", v.Secondary.ID)

	assert.Empty(t, VoicesFromConfig(config.Default()).Primary.ID, "provider defaults apply")
}

func TestBuild_MissingKeysBeforeAnyClient(t *testing.T) {
	cfg := config.Default()
	_, _, err := Build(context.Background(), cfg, nil, nil, StageScript, StageAudio)

	var missing *config.MissingKeysError
	require.True(t, errors.As(err, &missing))
	assert.ElementsMatch(t, []string{"OPENAI_API_KEY", "ELEVENLABS_API_KEY"}, missing.Keys)
}

func TestBuild_CreatesClients(t *testing.T) {
	cfg := config.Default()
	cfg.Keys.OpenAI = "sk-test"
	cfg.Keys.ElevenLabs = "el-test"

	p, closeFn, err := Build(context.Background(), cfg, nil, nil, StageScript, StageMetadata, StageAudio)
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, "openai", p.deps.LLM.Name())
	assert.Equal(t, "elevenlabs", p.deps.TTS.Name())
	assert.Equal(t, "concat", p.deps.Assembler.Name())
	assert.Nil(t, p.deps.Catalog, "no bucket means no archive")
}
