// Package llm invokes the generative model over the OpenAI chat-completions
// API and maps provider failures to a typed error taxonomy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.openai.com"

// Request is the composed prompt for one conversion. Built fresh per
// request, never shared.
type Request struct {
	Model  string
	System string
	User   string
}

// AuthError means the credential is missing or rejected. Never retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Message
}

// RateLimitedError signals the caller may retry after backoff.
type RateLimitedError struct {
	StatusCode int
	Message    string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// ModelError covers any other provider failure.
type ModelError struct {
	StatusCode int
	Message    string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// TimeoutError means the call exceeded its deadline. The in-flight request
// is abandoned; the provider may still complete it server-side.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model call timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Client calls the chat-completions endpoint. The API key is read once at
// construction and never logged.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. baseURL overrides the OpenAI endpoint for
// compatible providers; empty means api.openai.com.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-level timeout; the per-request context carries the
		// caller's deadline.
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate makes exactly one model call and returns the note text. Retry
// policy belongs to the caller.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &AuthError{Message: "api key is not configured"}
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(chatRequest{Model: req.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", &TimeoutError{Err: err}
		}
		return "", &ModelError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		// The deadline can also fire mid-body, after the headers arrived.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", &TimeoutError{Err: err}
		}
		return "", &ModelError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Message: apiErrorMessage(respBody, resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitedError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody, resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", &ModelError{StatusCode: resp.StatusCode, Message: apiErrorMessage(respBody, resp.StatusCode)}
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &ModelError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	if apiResp.Error != nil {
		return "", &ModelError{StatusCode: resp.StatusCode, Message: apiResp.Error.Message}
	}
	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Message.Content) == "" {
		return "", &ModelError{StatusCode: resp.StatusCode, Message: "empty response from model"}
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func apiErrorMessage(body []byte, status int) string {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fmt.Sprintf("status %d: %s", status, truncate(strings.TrimSpace(string(body)), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
