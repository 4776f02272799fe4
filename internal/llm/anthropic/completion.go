//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pgEdge/pgedge-chat-server/internal/llm"
)

// CompletionProvider implements the llm.CompletionProvider interface.
type CompletionProvider struct {
	client      *Client
	model       string
	maxTokens   int
	temperature float64
}

// NewCompletionProvider creates a new Anthropic completion provider.
func NewCompletionProvider(apiKey string, opts ...CompletionOption) *CompletionProvider {
	p := &CompletionProvider{
		client:      NewClient(apiKey),
		model:       defaultModel,
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CompletionOption configures the completion provider.
type CompletionOption func(*CompletionProvider)

// WithCompletionModel sets the model.
func WithCompletionModel(model string) CompletionOption {
	return func(p *CompletionProvider) {
		p.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(tokens int) CompletionOption {
	return func(p *CompletionProvider) {
		p.maxTokens = tokens
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(temp float64) CompletionOption {
	return func(p *CompletionProvider) {
		p.temperature = temp
	}
}

// WithCompletionClient sets a custom client.
func WithCompletionClient(client *Client) CompletionOption {
	return func(p *CompletionProvider) {
		p.client = client
	}
}

// message is a message in the messages API wire format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesRequest is the request body for the messages API. The
// system prompt travels outside the message list. Temperature is
// always sent: a resolved value of zero is a real setting.
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// messagesResponse is the response body from the messages API.
type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      messagesUsage  `json:"usage"`
}

type streamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

type streamMessage struct {
	Usage messagesUsage `json:"usage"`
}

// streamEvent is one server-sent event in a streaming completion.
// Which fields are set depends on the event type.
type streamEvent struct {
	Type    string         `json:"type"`
	Delta   *streamDelta   `json:"delta,omitempty"`
	Message *streamMessage `json:"message,omitempty"`
	Usage   *messagesUsage `json:"usage,omitempty"`
}

// Complete generates a non-streaming completion.
func (p *CompletionProvider) Complete(
	ctx context.Context,
	req llm.CompletionRequest,
) (*llm.CompletionResponse, error) {
	var msgResp messagesResponse
	err := p.client.postJSON(ctx, "/messages", p.buildRequest(req, false), &msgResp)
	if err != nil {
		return nil, err
	}

	// Concatenate the text blocks
	var content strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.CompletionResponse{
		Content:      content.String(),
		FinishReason: msgResp.StopReason,
		Usage: llm.TokenUsage{
			PromptTokens:     msgResp.Usage.InputTokens,
			CompletionTokens: msgResp.Usage.OutputTokens,
			TotalTokens:      msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
		},
	}, nil
}

// CompleteStream generates a streaming completion.
func (p *CompletionProvider) CompleteStream(
	ctx context.Context,
	req llm.CompletionRequest,
) (<-chan llm.StreamChunk, <-chan error) {
	chunkChan := make(chan llm.StreamChunk)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		resp, err := p.client.post(ctx, "/messages", p.buildRequest(req, true))
		if err != nil {
			errChan <- err
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			errChan <- parseError(resp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		var inputTokens, outputTokens int

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "" {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // Skip malformed events
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
				}
			case "content_block_delta":
				if event.Delta == nil || event.Delta.Type != "text_delta" {
					continue
				}
				select {
				case chunkChan <- llm.StreamChunk{Content: event.Delta.Text}:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			case "message_delta":
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}
				if event.Delta == nil || event.Delta.StopReason == "" {
					continue
				}
				final := llm.StreamChunk{
					FinishReason: event.Delta.StopReason,
					Usage: &llm.TokenUsage{
						PromptTokens:     inputTokens,
						CompletionTokens: outputTokens,
						TotalTokens:      inputTokens + outputTokens,
					},
				}
				select {
				case chunkChan <- final:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			case "message_stop":
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errChan <- fmt.Errorf("stream read error: %w", err)
		}
	}()

	return chunkChan, errChan
}

// buildRequest assembles the wire request, applying provider defaults
// for limits the caller left unset.
func (p *CompletionProvider) buildRequest(req llm.CompletionRequest, stream bool) messagesRequest {
	messages, system := p.buildMessages(req)

	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	temperature := p.temperature
	if req.Temperature >= 0 {
		temperature = req.Temperature
	}

	return messagesRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    messages,
		Temperature: temperature,
		Stream:      stream,
	}
}

// buildMessages converts the request into Anthropic's format, which
// only accepts user and assistant roles in the message list. The
// system prompt, any retrieved context, and system-role history
// messages all fold into the top-level system string.
func (p *CompletionProvider) buildMessages(req llm.CompletionRequest) ([]message, string) {
	var systemParts []string
	if req.SystemPrompt != "" {
		systemParts = append(systemParts, req.SystemPrompt)
	}
	if len(req.Context) > 0 {
		systemParts = append(systemParts, llm.FormatContext(req.Context))
	}

	messages := make([]message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			systemParts = append([]string{msg.Content}, systemParts...)
			continue
		}
		messages = append(messages, message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return messages, strings.Join(systemParts, "\n\n")
}

// ModelName returns the model name.
func (p *CompletionProvider) ModelName() string {
	return p.model
}

// Ensure CompletionProvider implements the interface.
var _ llm.CompletionProvider = (*CompletionProvider)(nil)
