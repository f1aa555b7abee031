package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcx1999/AIgame/pkg/chat"
)

func testServiceLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSiliconFlowService_Chat(t *testing.T) {
	var gotReq sfChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"剧情: 你醒来了\n选项:\n1. 起身\n2. 继续睡"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	svc := NewSiliconFlowService(server.URL, "test-key", "test-model", testServiceLogger())
	resp, err := svc.Chat(context.Background(), chat.UserMessage("开始游戏"))
	require.NoError(t, err)

	assert.Contains(t, resp.Message, "剧情: 你醒来了")
	assert.Equal(t, "test-model", gotReq.Model)
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, chat.ChatRoleUser, gotReq.Messages[0].Role)
}

func TestSiliconFlowService_ChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	svc := NewSiliconFlowService(server.URL, "test-key", "test-model", testServiceLogger())
	resp, err := svc.Chat(context.Background(), chat.UserMessage("你好"))
	require.NoError(t, err)
	assert.Equal(t, msgNoResponse, resp.Message)
}

func TestSiliconFlowService_ChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	svc := NewSiliconFlowService(server.URL, "bad-key", "test-model", testServiceLogger())
	_, err := svc.Chat(context.Background(), chat.UserMessage("你好"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSiliconFlowService_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sfChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"你\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"好\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"吗\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	svc := NewSiliconFlowService(server.URL, "test-key", "test-model", testServiceLogger())
	chunks, err := svc.ChatStream(context.Background(), chat.UserMessage("你好吗"))
	require.NoError(t, err)

	var full strings.Builder
	var done bool
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			done = true
			continue
		}
		full.WriteString(chunk.Content)
	}
	assert.True(t, done, "stream should end with a Done chunk")
	assert.Equal(t, "你好吗", full.String())
}

func TestSiliconFlowService_ChatStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewSiliconFlowService(server.URL, "test-key", "test-model", testServiceLogger())
	_, err := svc.ChatStream(context.Background(), chat.UserMessage("你好"))
	require.Error(t, err)
}
