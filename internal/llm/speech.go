package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GeminiSpeech synthesizes speech with a Gemini TTS model.
type GeminiSpeech struct {
	client *genai.Client
	model  string
}

// NewGeminiSpeech creates a TTS client. A nil httpClient gets a 30s timeout
// and an empty baseURL selects the public Gemini API.
func NewGeminiSpeech(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client) (*GeminiSpeech, error) {
	if httpClient == nil || httpClient == http.DefaultClient {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if model == "" {
		model = DefaultGeminiTTSModel
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini speech client: %w", err)
	}
	return &GeminiSpeech{client: cl, model: model}, nil
}

// Synthesize returns base64 PCM16 mono audio at SpeechSampleRate.
func (s *GeminiSpeech) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if voice == "" {
		voice = DefaultGeminiVoice
	}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("TTS request failed: %w", err)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return base64.StdEncoding.EncodeToString(p.InlineData.Data), nil
			}
		}
	}
	return "", errors.New("TTS response contained no audio")
}
