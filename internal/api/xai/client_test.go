package xai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/x-wrapped/internal/testutil"
)

func TestCreateChatCompletion(t *testing.T) {
	var gotReq ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:    "cmpl-1",
			Model: "grok-4-1-fast",
			Choices: []Choice{{
				Message:      ResponseMessage{Role: "assistant", Content: `{"ok": true}`},
				FinishReason: "stop",
			}},
			Citations: []string{"https://x.com/alice/status/1"},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "grok-4-1-fast",
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion() error = %v", err)
	}

	if gotReq.Model != "grok-4-1-fast" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != `{"ok": true}` {
		t.Errorf("choices = %+v", resp.Choices)
	}
	if len(resp.Citations) != 1 {
		t.Errorf("citations = %v", resp.Citations)
	}
}

func TestCreateChatCompletion_ErrorBodies(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "xai plain string error",
			status:      http.StatusBadRequest,
			body:        `{"code": "invalid_request", "error": "model not found"}`,
			wantMessage: "model not found",
			wantCode:    "invalid_request",
		},
		{
			name:        "openai structured error",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`,
			wantMessage: "rate limited",
			wantCode:    "rate_limit_error",
		},
		{
			name:        "unparseable body",
			status:      http.StatusBadGateway,
			body:        "upstream fell over",
			wantMessage: "upstream fell over",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "grok-4-1-fast"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error type = %T, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestStreamChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set on the wire")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		write := func(line string) {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}

		write(`data: {"choices":[{"delta":{"role":"assistant","tool_calls":[{"type":"x_search","function":{"name":"x_keyword_search"}}]}}]}`)
		write(`data: {"choices":[{"delta":{"content":"hello "}}]}`)
		write(`data: {"choices":[{"delta":{"content":"world"}}]}`)
		write(`: keepalive comment`)
		write(`data: {"choices":[{"delta":{},"finish_reason":"stop"}],"citations":["https://x.com/a/status/1"]}`)
		write(`data: [DONE]`)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	stream, err := client.StreamChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "grok-4-1-fast",
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}

	var chunks []*ChatCompletionChunk
	for result := range stream {
		if result.Err != nil {
			t.Fatalf("stream error: %v", result.Err)
		}
		chunks = append(chunks, result.Chunk)
	}

	if len(chunks) != 4 {
		t.Fatalf("chunks = %d, want 4", len(chunks))
	}
	if name := chunks[0].Choices[0].Delta.ToolCalls[0].Function.Name; name != "x_keyword_search" {
		t.Errorf("tool call name = %q", name)
	}
	if got := chunks[1].Choices[0].Delta.Content + chunks[2].Choices[0].Delta.Content; got != "hello world" {
		t.Errorf("content = %q", got)
	}
	if len(chunks[3].Citations) != 1 {
		t.Errorf("final chunk citations = %v", chunks[3].Citations)
	}
}

func TestStreamChatCompletion_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"code": "unauthorized", "error": "bad api key"}`)
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.StreamChatCompletion(context.Background(), &ChatCompletionRequest{Model: "grok-4-1-fast"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || !strings.Contains(apiErr.Message, "bad api key") {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestStreamChatCompletion_MalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json}\n\n")
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	stream, err := client.StreamChatCompletion(context.Background(), &ChatCompletionRequest{Model: "grok-4-1-fast"})
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}

	result, ok := <-stream
	if !ok {
		t.Fatal("stream closed without yielding the decode error")
	}
	if result.Err == nil {
		t.Fatal("malformed chunk did not surface an error")
	}
	if _, open := <-stream; open {
		t.Error("stream stayed open after a decode error")
	}
}

func TestStreamChatCompletion_CancelReleasesReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 50; i++ {
			fmt.Fprintf(w, `data: {"choices":[{"delta":{"content":"chunk %d"}}]}`+"\n\n", i)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	stream, err := client.StreamChatCompletion(ctx, &ChatCompletionRequest{Model: "grok-4-1-fast"})
	if err != nil {
		t.Fatalf("StreamChatCompletion() error = %v", err)
	}

	// Read one result, then walk away without draining. The reader parks
	// on its next send until the context releases it.
	if result := <-stream; result.Err != nil {
		t.Fatalf("first result error: %v", result.Err)
	}
	cancel()

	testutil.WaitForGoroutineExit(t, "(*Client).streamReader")
}

func TestWithBaseURL_TrailingSlash(t *testing.T) {
	client := NewClient("k", WithBaseURL("https://example.test/v1/"))
	if client.baseURL != "https://example.test/v1" {
		t.Errorf("baseURL = %q, trailing slash not trimmed", client.baseURL)
	}
}
