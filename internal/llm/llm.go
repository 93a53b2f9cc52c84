// Package llm talks to the generation backends: streamed speaking feedback,
// word definitions, writing analysis, and speech synthesis.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pavelanni/ielts-coach/internal/llm/prompts"
	"github.com/pavelanni/ielts-coach/internal/model"
)

// Provider selects a backend implementation.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Default model and voice names per provider.
const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	DefaultGeminiVoice    = "Fenrir"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultOpenAITTSModel = "tts-1"
	DefaultOpenAIVoice    = "onyx"
)

// SpeechSampleRate is the sample rate of synthesized PCM16 audio.
const SpeechSampleRate = 24000

// Chunk is one piece of a streamed response. A chunk with a non-nil Err is
// the last one sent.
type Chunk struct {
	Text string
	Err  error
}

// FeedbackRequest carries everything the speaking feedback prompt needs.
type FeedbackRequest struct {
	TopicTitle string
	Question   string
	Bullets    []string
	History    []model.Turn
	Answer     string
}

// Image is an uploaded picture sent alongside a prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Generator produces text from the model.
type Generator interface {
	// StreamFeedback streams examiner feedback for an answer. The channel is
	// closed when the response is complete or after an error chunk.
	StreamFeedback(ctx context.Context, req FeedbackRequest) (<-chan Chunk, error)
	Define(ctx context.Context, word string) (string, error)
	AnalyzeEssay(ctx context.Context, topic, essay string) (string, error)
	AnalyzeReport(ctx context.Context, report string, chart Image) (string, error)
}

// Synthesizer turns text into base64-encoded mono PCM16 audio at
// SpeechSampleRate.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// Backend is a provider that can both generate and speak.
type Backend interface {
	Generator
	Synthesizer
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Provider   Provider
	BaseURL    string
	APIKey     string
	Model      string
	TTSModel   string
	HTTPClient *http.Client
}

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want gemini or openai)", s)
	}
}

// DefaultVoice returns the voice used when none is configured.
func DefaultVoice(p Provider) string {
	if p == ProviderOpenAI {
		return DefaultOpenAIVoice
	}
	return DefaultGeminiVoice
}

// New creates the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Backend, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	switch cfg.Provider {
	case ProviderGemini, "":
		if cfg.Model == "" {
			cfg.Model = DefaultGeminiModel
		}
		if cfg.TTSModel == "" {
			cfg.TTSModel = DefaultGeminiTTSModel
		}
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		if cfg.TTSModel == "" {
			cfg.TTSModel = DefaultOpenAITTSModel
		}
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func feedbackPrompt(req FeedbackRequest) (string, error) {
	p, err := prompts.BuildFeedbackPrompt(req.TopicTitle, req.Question, req.Bullets, req.History, req.Answer)
	if err != nil {
		return "", fmt.Errorf("build feedback prompt: %w", err)
	}
	return p, nil
}
