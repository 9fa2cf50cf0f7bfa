package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"

	"github.com/apresai/paperpod/internal/awsutil"
	"github.com/apresai/paperpod/internal/retry"
)

const (
	pollyDefaultPrimary   = "Amy"
	pollyDefaultSecondary = "Ruth"
)

// pollyVoiceLang maps voice IDs to their language codes.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Amy":      types.LanguageCodeEnGb,
	"Ruth":     types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Olivia":   types.LanguageCodeEnAu,
	"Matthew":  types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
}

// PollyProvider implements Provider using AWS Polly (Generative engine).
type PollyProvider struct {
	voices VoiceMap
	client *polly.Client
}

func NewPollyProvider(ctx context.Context, voices VoiceMap, cfg ProviderConfig) (*PollyProvider, error) {
	awsCfg, err := awsutil.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for Polly: %w", err)
	}

	return &PollyProvider{
		voices: voices.merge(VoiceMap{
			Primary:   Voice{ID: pollyDefaultPrimary, Name: pollyDefaultPrimary},
			Secondary: Voice{ID: pollyDefaultSecondary, Name: pollyDefaultSecondary},
		}),
		client: polly.NewFromConfig(awsCfg),
	}, nil
}

func (p *PollyProvider) Name() string { return "polly" }

func (p *PollyProvider) Voices() VoiceMap { return p.voices }

func (p *PollyProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	lang, ok := pollyVoiceLang[voice.ID]
	if !ok {
		lang = types.LanguageCodeEnUs
	}

	sampleRate := "24000"
	resp, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineGenerative,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   &sampleRate,
		Text:         &text,
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice.ID),
		LanguageCode: lang,
	})
	if err != nil {
		if isPollyThrottle(err) {
			return AudioResult{}, &retry.RetryableError{Body: err.Error()}
		}
		return AudioResult{}, fmt.Errorf("Polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly read audio: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *PollyProvider) Close() error { return nil }

func isPollyThrottle(err error) bool {
	var sfe *types.ServiceFailureException
	if errors.As(err, &sfe) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	return false
}

func pollyAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Amy", Name: "Amy", Gender: "female", Description: "en-GB, Generative", DefaultFor: "primary"},
		{ID: "Ruth", Name: "Ruth", Gender: "female", Description: "en-US, Generative", DefaultFor: "secondary"},
		{ID: "Danielle", Name: "Danielle", Gender: "female", Description: "en-US, Generative"},
		{ID: "Olivia", Name: "Olivia", Gender: "female", Description: "en-AU, Generative"},
		{ID: "Matthew", Name: "Matthew", Gender: "male", Description: "en-US, Generative"},
		{ID: "Stephen", Name: "Stephen", Gender: "male", Description: "en-US, Generative"},
	}
}
