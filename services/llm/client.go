package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint
	DefaultBaseURL = "https://api.groq.com/openai"

	DefaultModel = "openai/gpt-oss-120b"

	DefaultTimeout = 120 * time.Second

	DefaultMaxTokens = 8192
)

// Config holds configuration for the chat completion client
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	TopP            float64
	MaxTokens       int
	ReasoningEffort string
	// Limiter paces outgoing calls. nil disables client-side pacing.
	Limiter *RateLimiter
}

// Client talks to an OpenAI-compatible /v1/chat/completions endpoint
type Client struct {
	http    *resty.Client
	model   string
	limiter *RateLimiter

	temperature     float64
	topP            float64
	maxTokens       int
	reasoningEffort string
}

// NewClient creates a new client, filling unset fields with defaults
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1
	}
	if cfg.TopP == 0 {
		cfg.TopP = 1
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &Client{
		http:            client,
		model:           cfg.Model,
		limiter:         cfg.Limiter,
		temperature:     cfg.Temperature,
		topP:            cfg.TopP,
		maxTokens:       cfg.MaxTokens,
		reasoningEffort: cfg.ReasoningEffort,
	}
}

// Message is a single role-tagged chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         float64   `json:"temperature"`
	TopP                float64   `json:"top_p"`
	MaxCompletionTokens int       `json:"max_completion_tokens"`
	ReasoningEffort     string    `json:"reasoning_effort,omitempty"`
	Stream              bool      `json:"stream"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// ErrEmptyCompletion is returned when the provider answers without choices
var ErrEmptyCompletion = errors.New("no choices returned from chat completion API")

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user message and returns the first choice's text
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}})
}

// Chat sends the given messages and returns the first choice's text
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model:               c.model,
			Messages:            messages,
			Temperature:         c.temperature,
			TopP:                c.topP,
			MaxCompletionTokens: c.maxTokens,
			ReasoningEffort:     c.reasoningEffort,
		}).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", &APIError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			RetryAfter: ParseRetryAfter(resp.Header().Get("Retry-After")),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return result.Choices[0].Message.Content, nil
}

// APIError is a non-2xx answer from the provider
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("chat completion API error (status %d): %s", e.StatusCode, body)
}

// HTTPStatusCode exposes the status to callers that only know the interface
func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

// ParseRetryAfter converts a Retry-After header value (seconds or an HTTP
// date) into a wait. Returns 0 if the value is missing or cannot be parsed.
func ParseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

type statusCoder interface {
	HTTPStatusCode() int
}

type retryAfterer interface {
	RetryAfterDuration() time.Duration
}

// IsRateLimited reports whether any error in err's chain is an HTTP 429,
// either as an *APIError or through the HTTPStatusCode interface so errors
// from other SDKs that nest the status are classified the same way.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode() == http.StatusTooManyRequests
	}
	return false
}

// RetryAfterHint returns the provider-suggested wait carried by err, or 0.
func RetryAfterHint(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	var ra retryAfterer
	if errors.As(err, &ra) {
		return ra.RetryAfterDuration()
	}
	return 0
}
