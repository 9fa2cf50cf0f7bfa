package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

const (
	googleDefaultPrimary   = "en-GB-Chirp3-HD-Aoede"
	googleDefaultSecondary = "en-US-Chirp3-HD-Leda"
)

// GoogleProvider implements Provider using Google Cloud TTS (Chirp 3 HD).
type GoogleProvider struct {
	voices VoiceMap
	client *texttospeech.Client
	speed  float64
	pitch  float64
}

func NewGoogleProvider(ctx context.Context, voices VoiceMap, cfg ProviderConfig) (*GoogleProvider, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}

	return &GoogleProvider{
		voices: voices.merge(VoiceMap{
			Primary:   Voice{ID: googleDefaultPrimary, Name: "Aoede"},
			Secondary: Voice{ID: googleDefaultSecondary, Name: "Leda"},
		}),
		client: client,
		speed:  cfg.Speed,
		pitch:  cfg.Pitch,
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Voices() VoiceMap { return p.voices }

func (p *GoogleProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: googleLanguageCode(voice.ID),
			Name:         voice.ID,
		},
		AudioConfig: p.audioConfig(),
	}

	resp, err := p.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Google TTS synthesize: %w", err)
	}

	return AudioResult{Data: resp.AudioContent, Format: FormatMP3}, nil
}

func (p *GoogleProvider) audioConfig() *texttospeechpb.AudioConfig {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if p.speed != 0 {
		cfg.SpeakingRate = p.speed
	}
	if p.pitch != 0 {
		cfg.Pitch = p.pitch
	}
	return cfg
}

func (p *GoogleProvider) Close() error { return p.client.Close() }

// googleLanguageCode takes the locale prefix of a voice name
// ("en-GB-Chirp3-HD-Aoede" -> "en-GB").
func googleLanguageCode(voiceID string) string {
	parts := strings.SplitN(voiceID, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func googleAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "en-GB-Chirp3-HD-Aoede", Name: "Aoede", Gender: "female", Description: "British, bright and expressive", DefaultFor: "primary"},
		{ID: "en-US-Chirp3-HD-Leda", Name: "Leda", Gender: "female", Description: "American, youthful and bright", DefaultFor: "secondary"},
		{ID: "en-GB-Chirp3-HD-Kore", Name: "Kore", Gender: "female", Description: "British, firm and confident"},
		{ID: "en-US-Chirp3-HD-Zephyr", Name: "Zephyr", Gender: "female", Description: "American, breezy and relaxed"},
		{ID: "en-US-Chirp3-HD-Charon", Name: "Charon", Gender: "male", Description: "American, informative narrator"},
		{ID: "en-US-Chirp3-HD-Puck", Name: "Puck", Gender: "male", Description: "American, upbeat and energetic"},
	}
}
