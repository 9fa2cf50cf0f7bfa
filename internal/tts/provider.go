// Package tts synthesizes speech for script turns.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/apresai/paperpod/internal/retry"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatPCM AudioFormat = "pcm" // raw 24kHz s16le mono, needs FFmpeg conversion
)

// Voice holds a provider-specific voice identifier.
type Voice struct {
	ID   string // Provider-specific voice identifier
	Name string // Human-readable label
}

// VoiceMap maps the two hosts to voices. Primary speaks for the roster's
// first persona, Secondary for the other.
type VoiceMap struct {
	Primary   Voice
	Secondary Voice
}

// merge fills empty IDs in m from defaults.
func (m VoiceMap) merge(defaults VoiceMap) VoiceMap {
	if m.Primary.ID == "" {
		m.Primary = defaults.Primary
	} else if m.Primary.Name == "" {
		m.Primary.Name = m.Primary.ID
	}
	if m.Secondary.ID == "" {
		m.Secondary = defaults.Secondary
	} else if m.Secondary.Name == "" {
		m.Secondary.Name = m.Secondary.ID
	}
	return m
}

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes speech from a single turn of text.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	Voices() VoiceMap
	Close() error
}

// ProviderConfig holds provider-specific settings. Empty fields use each
// provider's defaults.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Region  string  // AWS region for Polly, GCP region for Vertex
	Project string  // GCP project; selects Vertex auth for gemini
	Speed   float64 // speaking rate multiplier
	Pitch   float64 // semitones, google only
}

// VoiceInfo describes an available voice for display in the registry.
type VoiceInfo struct {
	ID          string
	Name        string
	Gender      string // "male" or "female"
	Description string
	DefaultFor  string // "primary", "secondary", or ""
}

// ProviderNames lists the supported providers.
func ProviderNames() []string {
	return []string{"elevenlabs", "google", "polly", "gemini"}
}

// AvailableVoices returns the voice catalog for the named provider.
func AvailableVoices(providerName string) ([]VoiceInfo, error) {
	switch providerName {
	case "elevenlabs":
		return elevenLabsAvailableVoices(), nil
	case "google":
		return googleAvailableVoices(), nil
	case "polly":
		return pollyAvailableVoices(), nil
	case "gemini":
		return geminiAvailableVoices(), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", providerName)
	}
}

// NewProvider creates a TTS provider by name. Voice IDs left empty in voices
// fall back to the provider defaults.
func NewProvider(ctx context.Context, name string, voices VoiceMap, cfg ProviderConfig) (Provider, error) {
	switch name {
	case "", "elevenlabs":
		return NewElevenLabsProvider(voices, cfg), nil
	case "google":
		return NewGoogleProvider(ctx, voices, cfg)
	case "polly":
		return NewPollyProvider(ctx, voices, cfg)
	case "gemini":
		return NewGeminiProvider(voices, cfg), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q: choose elevenlabs, google, polly, or gemini", name)
	}
}

// APIKeyEnv names the environment variable holding the provider's key, or ""
// for providers using ambient cloud credentials.
func APIKeyEnv(provider string) string {
	switch provider {
	case "", "elevenlabs":
		return "ELEVENLABS_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// statusError turns a non-200 response into an error. 429 and 5xx become
// *retry.RetryableError carrying any Retry-After hint.
func statusError(provider string, res *http.Response) error {
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
		var retryAfter time.Duration
		if ra := res.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &retry.RetryableError{
			StatusCode: res.StatusCode,
			Body:       string(body),
			RetryAfter: retryAfter,
		}
	}
	return fmt.Errorf("%s API error (status %d): %s", provider, res.StatusCode, string(body))
}
