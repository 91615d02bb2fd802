// Package xai adapts the xAI API client to the analysis-client contract
// consumed by the report orchestrator.
package xai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	xaiapi "github.com/tjfontaine/x-wrapped/internal/api/xai"
	"github.com/tjfontaine/x-wrapped/internal/wrapped"
)

const defaultModel = "grok-4-1-fast"

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithModel overrides the default model.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements wrapped.AnalysisClient against the xAI API.
type Provider struct {
	client     *xaiapi.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ wrapped.AnalysisClient = (*Provider)(nil)

// New creates an xAI provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: defaultModel}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []xaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, xaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, xaiapi.WithHTTPClient(p.httpClient))
	}

	p.client = xaiapi.NewClient(apiKey, clientOpts...)
	return p
}

// Model returns the model this provider dispatches to.
func (p *Provider) Model() string {
	return p.model
}

// StreamAnalysis runs the prompt with the provider's X search and code
// execution tools enabled, translating streamed chunks into analysis
// events as they arrive.
func (p *Provider) StreamAnalysis(ctx context.Context, prompt string) (<-chan wrapped.StreamEvent, error) {
	req := &xaiapi.ChatCompletionRequest{
		Model:    p.model,
		Messages: []xaiapi.Message{xaiapi.UserMessage(prompt)},
		Tools:    []xaiapi.Tool{xaiapi.XSearchTool(), xaiapi.CodeExecutionTool()},
	}

	stream, err := p.client.StreamChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan wrapped.StreamEvent)
	go func() {
		defer close(out)
		// Sends race the context: an abandoned consumer stops reading, so
		// an unguarded send would park this goroutine forever.
		send := func(event wrapped.StreamEvent) bool {
			select {
			case out <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for result := range stream {
			if result.Err != nil {
				send(wrapped.StreamEvent{Err: result.Err})
				return
			}

			chunk := result.Chunk
			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				for _, tc := range choice.Delta.ToolCalls {
					name := tc.Function.Name
					if name == "" {
						name = tc.Type
					}
					if !send(wrapped.StreamEvent{ToolName: name}) {
						return
					}
				}
				if choice.Delta.Content != "" {
					if !send(wrapped.StreamEvent{ContentDelta: choice.Delta.Content}) {
						return
					}
				}
			}

			// Citations ride on the final chunk
			if len(chunk.Citations) > 0 {
				if !send(wrapped.StreamEvent{Citations: chunk.Citations}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// ParseStructured runs the prompt with output constrained to the report
// schema. No tools: structured output and server-side tools are mutually
// exclusive on the xAI API.
func (p *Provider) ParseStructured(ctx context.Context, prompt string, schema *wrapped.ReportSchema) (map[string]any, error) {
	schemaMap, err := schema.JSONSchema()
	if err != nil {
		return nil, err
	}

	req := &xaiapi.ChatCompletionRequest{
		Model:    p.model,
		Messages: []xaiapi.Message{xaiapi.UserMessage(prompt)},
		ResponseFormat: &xaiapi.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &xaiapi.JSONSchemaSpec{
				Name:   schema.Name,
				Strict: true,
				Schema: schemaMap,
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("structured response had no choices")
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &report); err != nil {
		return nil, fmt.Errorf("structured response was not valid JSON: %w", err)
	}
	return report, nil
}
