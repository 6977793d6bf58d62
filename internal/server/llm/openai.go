package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "mistralai/mistral-7b-instruct"
	DefaultTimeout = 15 * time.Second
	DefaultReferer = "http://localhost:3000"
)

var (
	errNoChoices      = errors.New("response contained no choices")
	errMalformedReply = errors.New("response lacks choices[0].message.content")
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Referer is sent as HTTP-Referer, which OpenRouter uses to attribute
	// traffic to the calling app.
	Referer string
}

// OpenAIGateway calls an OpenAI-compatible chat-completion endpoint.
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGateway(cfg Config) *OpenAIGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base:    &replyShapeTransport{base: http.DefaultTransport},
			headers: map[string]string{"HTTP-Referer": cfg.Referer},
		},
	}

	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (g *OpenAIGateway) Complete(ctx context.Context, turns []models.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(t.Role),
			Content: t.Content,
		})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", toGatewayError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", &GatewayError{StatusCode: http.StatusOK, Err: errNoChoices}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toGatewayError(ctx context.Context, err error) *GatewayError {
	ge := &GatewayError{Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(err, errMalformedReply):
		ge.StatusCode = http.StatusOK
	case errors.As(err, &apiErr):
		ge.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		ge.StatusCode = reqErr.HTTPStatusCode
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ge.Timeout = true
	}
	return ge
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// replyShapeTransport rejects successful responses whose first choice has
// no message content. The client library decodes an absent field and an
// empty string the same way, so the check runs on the raw body.
type replyShapeTransport struct {
	base http.RoundTripper
}

type replyShape struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (t *replyShapeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var shape replyShape
	if json.Unmarshal(body, &shape) == nil && len(shape.Choices) > 0 {
		if m := shape.Choices[0].Message; m == nil || m.Content == nil {
			return nil, errMalformedReply
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
