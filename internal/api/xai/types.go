// Package xai provides types and an HTTP client for the xAI chat
// completions API. The wire format is OpenAI-compatible with xAI
// additions: server-side agentic tools and citation lists.
package xai

import "encoding/json"

// ChatCompletionRequest represents an xAI chat completion request.
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	Tools          []Tool          `json:"tools,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Tool declares a server-side tool the model may use. xAI's agentic
// tools are executed provider-side; only the type is declared.
type Tool struct {
	Type string `json:"type"`
}

// XSearchTool enables the provider's X search tool family.
func XSearchTool() Tool { return Tool{Type: "x_search"} }

// CodeExecutionTool enables provider-side code execution.
func CodeExecutionTool() Tool { return Tool{Type: "code_execution"} }

// ResponseFormat constrains output. Structured output and server-side
// tools are mutually exclusive on a single request.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

// JSONSchemaSpec names and carries the schema for structured output.
type JSONSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// ChatCompletionResponse represents a full (non-streaming) response.
type ChatCompletionResponse struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	Created   int64    `json:"created"`
	Model     string   `json:"model"`
	Choices   []Choice `json:"choices"`
	Citations []string `json:"citations,omitempty"`
	Usage     Usage    `json:"usage,omitempty"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message in a response.
type ResponseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall records a tool invocation by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked tool's name and arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Usage is token accounting from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed SSE chunk.
type ChatCompletionChunk struct {
	ID        string        `json:"id"`
	Object    string        `json:"object"`
	Created   int64         `json:"created"`
	Model     string        `json:"model"`
	Choices   []ChunkChoice `json:"choices"`
	Citations []string      `json:"citations,omitempty"`
	Usage     *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is one choice within a streamed chunk.
type ChunkChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Delta is the incremental payload of a chunk.
type Delta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ErrorResponse is the provider's error envelope. Some xAI error bodies
// carry a plain string code, others a structured object; RawError keeps
// the original for logging.
type ErrorResponse struct {
	Code     string          `json:"code,omitempty"`
	Error    json.RawMessage `json:"error,omitempty"`
	RawError string          `json:"-"`
}
