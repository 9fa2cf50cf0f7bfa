package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/apresai/paperpod/internal/retry"
)

const (
	geminiDefaultPrimary   = "Kore"
	geminiDefaultSecondary = "Leda"

	geminiDefaultModel  = "gemini-2.5-flash-preview-tts"
	geminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	vertexDefaultModel  = "gemini-2.5-flash-tts"
	vertexDefaultRegion = "us-central1"
	cloudPlatformScope  = "https://www.googleapis.com/auth/cloud-platform"
)

// geminiRequest is the top-level request to the generateContent TTS endpoint.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"` // base64-encoded PCM
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiProvider implements Provider using Gemini speech generation, either
// through AI Studio with an API key or through Vertex AI with Application
// Default Credentials when a GCP project is configured.
type GeminiProvider struct {
	voices     VoiceMap
	apiKey     string
	endpoint   string
	vertex     bool
	httpClient *http.Client

	tsOnce sync.Once
	ts     oauth2.TokenSource
	tsErr  error
}

func NewGeminiProvider(voices VoiceMap, cfg ProviderConfig) *GeminiProvider {
	p := &GeminiProvider{
		voices: voices.merge(VoiceMap{
			Primary:   Voice{ID: geminiDefaultPrimary, Name: geminiDefaultPrimary},
			Secondary: Voice{ID: geminiDefaultSecondary, Name: geminiDefaultSecondary},
		}),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}

	model := cfg.Model
	switch {
	case cfg.Project != "" && cfg.APIKey == "":
		p.vertex = true
		if model == "" {
			model = vertexDefaultModel
		}
		region := cfg.Region
		if region == "" {
			region = vertexDefaultRegion
		}
		base := cfg.BaseURL
		if base == "" {
			base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", region)
		}
		p.endpoint = fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			strings.TrimRight(base, "/"), cfg.Project, region, model)
	default:
		if model == "" {
			model = geminiDefaultModel
		}
		base := cfg.BaseURL
		if base == "" {
			base = geminiBaseURL
		}
		p.endpoint = fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(base, "/"), model)
	}
	return p
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Voices() VoiceMap { return p.voices }

// Synthesize does single-speaker synthesis for one turn. The result is raw PCM.
func (p *GeminiProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	content := geminiContent{Parts: []geminiPart{{Text: text}}}
	if p.vertex {
		content.Role = "user"
	}
	req := geminiRequest{
		Contents: []geminiContent{content},
		GenerationConfig: geminiGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice.ID},
				},
			},
		},
	}

	data, err := p.doRequest(ctx, req)
	if err != nil {
		return AudioResult{}, err
	}
	return AudioResult{Data: data, Format: FormatPCM}, nil
}

// accessToken obtains an OAuth2 token via Application Default Credentials.
func (p *GeminiProvider) accessToken(ctx context.Context) (string, error) {
	p.tsOnce.Do(func() {
		p.ts, p.tsErr = google.DefaultTokenSource(ctx, cloudPlatformScope)
	})
	if p.tsErr != nil {
		return "", fmt.Errorf("get default token source: %w (hint: run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS)", p.tsErr)
	}
	token, err := p.ts.Token()
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}
	return token.AccessToken, nil
}

func (p *GeminiProvider) doRequest(ctx context.Context, reqBody geminiRequest) ([]byte, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal Gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if p.vertex {
		token, err := p.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("x-goog-api-key", p.apiKey)
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retry.RetryableError{Body: fmt.Sprintf("network error: %v", err)}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, statusError("Gemini", res)
	}

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read Gemini response: %w", err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse Gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].InlineData == nil {
		return nil, fmt.Errorf("Gemini response contained no audio data")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Candidates[0].Content.Parts[0].InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("decode Gemini audio base64: %w", err)
	}
	return audio, nil
}

func (p *GeminiProvider) Close() error { return nil }

func geminiAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: "Kore", Name: "Kore", Gender: "female", Description: "Firm, confident female voice", DefaultFor: "primary"},
		{ID: "Leda", Name: "Leda", Gender: "female", Description: "Youthful, bright female voice", DefaultFor: "secondary"},
		{ID: "Aoede", Name: "Aoede", Gender: "female", Description: "Bright, expressive female voice"},
		{ID: "Zephyr", Name: "Zephyr", Gender: "female", Description: "Breezy, relaxed female voice"},
		{ID: "Charon", Name: "Charon", Gender: "male", Description: "Informative, clear male narrator"},
		{ID: "Puck", Name: "Puck", Gender: "male", Description: "Upbeat, energetic male voice"},
	}
}
