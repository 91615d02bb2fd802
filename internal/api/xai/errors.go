package xai

import (
	"encoding/json"
	"fmt"
)

// APIError is a provider-side failure with the HTTP status attached.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("xai: %s (status %d, code %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("xai: %s (status %d)", e.Message, e.StatusCode)
}

// parseErrorResponse extracts an APIError from a non-200 body. The body
// may be `{"code": "...", "error": "..."}`, an OpenAI-style
// `{"error": {"message": "..."}}`, or something else entirely; the raw
// body is kept as the message when it cannot be decoded.
func parseErrorResponse(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Message: string(body)}

	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiErr
	}
	apiErr.Code = envelope.Code

	if len(envelope.Error) == 0 {
		return apiErr
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		apiErr.Message = plain
		return apiErr
	}

	var structured struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(envelope.Error, &structured); err == nil && structured.Message != "" {
		apiErr.Message = structured.Message
		if apiErr.Code == "" {
			apiErr.Code = structured.Type
		}
	}
	return apiErr
}
