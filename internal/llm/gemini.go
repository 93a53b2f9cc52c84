package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/pavelanni/ielts-coach/internal/llm/prompts"
)

// GeminiClient generates text with the generative-ai-go SDK and speaks
// through GeminiSpeech.
type GeminiClient struct {
	client *genai.Client
	model  string
	speech *GeminiSpeech
}

// NewGemini creates a Gemini client. The API key is required.
func NewGemini(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	// BaseURL is a gRPC endpoint for the text client; speech always uses the
	// public REST host.
	speech, err := NewGeminiSpeech(ctx, cfg.APIKey, cfg.TTSModel, "", cfg.HTTPClient)
	if err != nil {
		cl.Close()
		return nil, err
	}
	return &GeminiClient{
		client: cl,
		model:  strings.TrimSpace(cfg.Model),
		speech: speech,
	}, nil
}

// Ping fetches the model metadata.
func (g *GeminiClient) Ping(ctx context.Context) error {
	if _, err := g.client.GenerativeModel(g.model).Info(ctx); err != nil {
		return fmt.Errorf("gemini model info: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// StreamFeedback streams examiner feedback for one answer.
func (g *GeminiClient) StreamFeedback(ctx context.Context, req FeedbackRequest) (<-chan Chunk, error) {
	prompt, err := feedbackPrompt(req)
	if err != nil {
		return nil, err
	}

	iter := g.client.GenerativeModel(g.model).GenerateContentStream(ctx, genai.Text(prompt))
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, out, Chunk{Err: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			text := allText(resp)
			if text == "" {
				continue
			}
			if !send(ctx, out, Chunk{Text: text}) {
				return
			}
		}
	}()
	return out, nil
}

// Define asks for a short bilingual definition of word.
func (g *GeminiClient) Define(ctx context.Context, word string) (string, error) {
	prompt, err := prompts.BuildDefinePrompt(word)
	if err != nil {
		return "", fmt.Errorf("build define prompt: %w", err)
	}
	return g.generate(ctx, genai.Text(prompt))
}

// AnalyzeEssay reviews a Writing Task 2 essay.
func (g *GeminiClient) AnalyzeEssay(ctx context.Context, topic, essay string) (string, error) {
	prompt, err := prompts.BuildEssayPrompt(topic, essay)
	if err != nil {
		return "", fmt.Errorf("build essay prompt: %w", err)
	}
	return g.generate(ctx, genai.Text(prompt))
}

// AnalyzeReport reviews a Writing Task 1 report against its chart image.
func (g *GeminiClient) AnalyzeReport(ctx context.Context, report string, chart Image) (string, error) {
	prompt, err := prompts.BuildReportPrompt(report)
	if err != nil {
		return "", fmt.Errorf("build report prompt: %w", err)
	}
	return g.generate(ctx,
		&genai.Blob{MIMEType: chart.MIMEType, Data: chart.Data},
		genai.Text(prompt),
	)
}

// Synthesize delegates to the TTS endpoint.
func (g *GeminiClient) Synthesize(ctx context.Context, text, voice string) (string, error) {
	return g.speech.Synthesize(ctx, text, voice)
}

func (g *GeminiClient) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.client.GenerativeModel(g.model).GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	txt := allText(resp)
	slog.Debug("gemini response", "model", g.model, "len", len(txt))
	return txt, nil
}

// allText concatenates the text parts of the first candidate with content.
func allText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		return sb.String()
	}
	return ""
}
