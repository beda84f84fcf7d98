package openai

import (
	"fmt"
	"strings"
)

// APIError is the single failure type surfaced by every collaborator call.
// The dialogue layer never inspects it beyond "the call failed"; the fields
// exist for logs.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("openai: request failed (status %d)", e.Status)
}

// Code exposes a short classifier for handler summary logs.
func (e *APIError) Code() string {
	if t := strings.TrimSpace(e.Type); t != "" {
		return t
	}
	return "collaborator_error"
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
