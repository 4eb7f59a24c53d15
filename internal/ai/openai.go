package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const maxCompletionTokens = 2000

// OpenAI is an Engine backed by the OpenAI chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI engine. baseURL may be empty to use the
// default API endpoint.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

// prompts returns the system and user prompts for a request. Debug and
// explain requests fold the attached code into the user prompt.
func prompts(req Request) (system, user string) {
	switch req.Mode {
	case ModeDebug:
		system = "You are an expert debugger. Analyze the code and provide fixes."
		user = fmt.Sprintf("Debug this code:\n\n%s\n\nIssue: %s", req.CodeContext, req.Prompt)
	case ModeExplain:
		system = "You are a programming instructor. Explain code clearly and educationally."
		user = fmt.Sprintf("Explain this code:\n\n%s\n\nFocus: %s", req.CodeContext, req.Prompt)
	default:
		system = "You are an expert programmer. Generate clean, well-commented code based on the user's request."
		user = req.Prompt
	}
	return system, user
}

func temperature(mode Mode) float64 {
	switch mode {
	case ModeDebug:
		return 0.3
	case ModeExplain:
		return 0.5
	default:
		return 0.7
	}
}

func (e *OpenAI) params(req Request) openai.ChatCompletionNewParams {
	system, user := prompts(req)
	return openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature(req.Mode)),
		MaxTokens:   openai.Int(maxCompletionTokens),
	}
}

// Complete runs the request to completion and returns the full response text.
func (e *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := e.client.Chat.Completions.New(ctx, e.params(req))
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream begins an incremental generation and returns a pull-based token
// stream over the response deltas.
func (e *OpenAI) Stream(ctx context.Context, req Request) (TokenStream, error) {
	return &openaiStream{stream: e.client.Chat.Completions.NewStreaming(ctx, e.params(req))}, nil
}

type openaiStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	cur    string
}

func (s *openaiStream) Next() bool {
	// Skip chunks that carry no content delta (role headers, usage frames).
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			s.cur = chunk.Choices[0].Delta.Content
			return true
		}
	}
	return false
}

func (s *openaiStream) Current() string { return s.cur }

func (s *openaiStream) Err() error {
	if err := s.stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("ai: stream: %w", err)
	}
	return nil
}

func (s *openaiStream) Close() error { return s.stream.Close() }
