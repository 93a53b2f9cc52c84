package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/ielts-coach/internal/llm/prompts"
)

// OpenAIClient wraps an OpenAI-compatible API client.
type OpenAIClient struct {
	api      *openai.Client
	model    string
	ttsModel string
}

// NewOpenAI creates a client for an OpenAI-compatible endpoint.
func NewOpenAI(cfg Config) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIClient{
		api:      openai.NewClientWithConfig(config),
		model:    cfg.Model,
		ttsModel: cfg.TTSModel,
	}
}

// Ping checks that the endpoint answers.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client needs no teardown.
func (c *OpenAIClient) Close() error { return nil }

// StreamFeedback streams examiner feedback for one answer.
func (c *OpenAIClient) StreamFeedback(ctx context.Context, req FeedbackRequest) (<-chan Chunk, error) {
	prompt, err := feedbackPrompt(req)
	if err != nil {
		return nil, err
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM stream call: %w", err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				send(ctx, out, Chunk{Err: fmt.Errorf("LLM stream recv: %w", err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ctx, out, Chunk{Text: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return out, nil
}

// Define asks for a short bilingual definition of word.
func (c *OpenAIClient) Define(ctx context.Context, word string) (string, error) {
	prompt, err := prompts.BuildDefinePrompt(word)
	if err != nil {
		return "", fmt.Errorf("build define prompt: %w", err)
	}
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

// AnalyzeEssay reviews a Writing Task 2 essay.
func (c *OpenAIClient) AnalyzeEssay(ctx context.Context, topic, essay string) (string, error) {
	prompt, err := prompts.BuildEssayPrompt(topic, essay)
	if err != nil {
		return "", fmt.Errorf("build essay prompt: %w", err)
	}
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

// AnalyzeReport reviews a Writing Task 1 report against its chart image.
func (c *OpenAIClient) AnalyzeReport(ctx context.Context, report string, chart Image) (string, error) {
	prompt, err := prompts.BuildReportPrompt(report)
	if err != nil {
		return "", fmt.Errorf("build report prompt: %w", err)
	}
	return c.complete(ctx, []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL(chart)},
			},
		},
	}})
}

// Synthesize renders text as base64 PCM16 via the speech endpoint.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if voice == "" {
		voice = DefaultOpenAIVoice
	}
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return "", fmt.Errorf("speech API call: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("read speech audio: %w", err)
	}
	if len(pcm) == 0 {
		return "", errors.New("speech API returned no audio")
	}
	return base64.StdEncoding.EncodeToString(pcm), nil
}

func (c *OpenAIClient) complete(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", c.model, "len", len(raw))
	return raw, nil
}

func dataURL(img Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// send delivers c unless ctx is cancelled first.
func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
