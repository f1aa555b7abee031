package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hcx1999/AIgame/pkg/chat"
)

const msgNoResponse = "(no response)"

// SiliconFlowService implements LLMService against an OpenAI-compatible
// chat completions endpoint (SiliconFlow by default).
type SiliconFlowService struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

// sfChatRequest is the OpenAI-compatible chat completions request body.
type sfChatRequest struct {
	Model       string             `json:"model"`
	Messages    []chat.ChatMessage `json:"messages"`
	Stream      bool               `json:"stream"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

type sfChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// sfStreamChunk is one SSE data payload from a streaming completion.
type sfStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewSiliconFlowService creates a new client for an OpenAI-compatible
// endpoint.
func NewSiliconFlowService(baseURL, apiKey, modelName string, logger *slog.Logger) *SiliconFlowService {
	return &SiliconFlowService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

var _ LLMService = (*SiliconFlowService)(nil)

// Chat generates a full chat response.
func (s *SiliconFlowService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	resp, err := s.do(ctx, sfChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body sfChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("chat completion error: %s", body.Error.Message)
	}
	if len(body.Choices) == 0 {
		return &chat.ChatResponse{Message: msgNoResponse}, nil
	}
	return &chat.ChatResponse{Message: body.Choices[0].Message.Content}, nil
}

// ChatStream generates a streaming chat response. Fragments are decoded
// from SSE "data:" lines and forwarded until [DONE].
func (s *SiliconFlowService) ChatStream(ctx context.Context, messages []chat.ChatMessage) (<-chan StreamChunk, error) {
	resp, err := s.do(ctx, sfChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				break
			}
			var chunk sfStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				s.logger.Warn("Skipping malformed stream chunk", "error", err)
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case out <- StreamChunk{Content: content}:
				case <-ctx.Done():
					select {
					case out <- StreamChunk{Done: true, Err: ctx.Err()}:
					default:
					}
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			out <- StreamChunk{Done: true, Err: fmt.Errorf("stream read failed: %w", err)}
			return
		}
		out <- StreamChunk{Done: true}
	}()
	return out, nil
}

func (s *SiliconFlowService) do(ctx context.Context, reqBody sfChatRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.baseURL + "/chat/completions"
	s.logger.Debug("Making chat completion request",
		"url", url,
		"model", s.modelName,
		"stream", reqBody.Stream,
		"message_count", len(reqBody.Messages))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		var body bytes.Buffer
		_, _ = body.ReadFrom(resp.Body)
		s.logger.Error("Chat completion API returned error",
			"status_code", resp.StatusCode,
			"response_body", body.String())
		return nil, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}
	return resp, nil
}
