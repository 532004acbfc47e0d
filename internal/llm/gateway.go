package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nas/track-learning/internal/errors"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body sent to either provider.
type ChatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

// Response is a decoded provider reply.
type Response struct {
	Provider Provider
	Body     map[string]any
}

// Content returns the assistant text, or "" when the body lacks it.
func (r *Response) Content() string {
	return r.Provider.Content(r.Body)
}

// CallObserver is notified after each round trip.
type CallObserver interface {
	ObserveLLMCall(provider string, d time.Duration, err error)
}

// Gateway sends one system+user exchange per call. It keeps no state between
// calls and does not retry.
type Gateway struct {
	client   *http.Client
	getenv   func(string) string
	logger   *slog.Logger
	observer CallObserver
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithEnv overrides the environment lookup, mainly for tests.
func WithEnv(getenv func(string) string) Option {
	return func(g *Gateway) { g.getenv = getenv }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithObserver registers a call observer.
func WithObserver(o CallObserver) Option {
	return func(g *Gateway) { g.observer = o }
}

// NewGateway creates a Gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		client: http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete resolves the provider, sends the exchange and returns the assistant text.
func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	cfg, err := ResolveConfig(g.getenv)
	if err != nil {
		return "", err
	}
	resp, err := g.Chat(ctx, cfg, system, user)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// Chat posts the exchange to the configured provider and returns the decoded body.
// A non-2xx status is a transport error.
func (g *Gateway) Chat(ctx context.Context, cfg *ProviderConfig, system, user string) (*Response, error) {
	payload := ChatRequest{
		Model:  cfg.Model,
		Stream: false,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("marshal chat request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Provider.Endpoint(cfg.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("invalid LLM endpoint: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	cfg.Provider.Authorize(req, cfg.APIKey)

	start := time.Now()
	decoded, err := g.roundTrip(req)
	elapsed := time.Since(start)

	if g.observer != nil {
		g.observer.ObserveLLMCall(cfg.Provider.Name(), elapsed, err)
	}
	g.logger.Debug("llm call",
		slog.String("provider", cfg.Provider.Name()),
		slog.String("model", cfg.Model),
		slog.Duration("elapsed", elapsed),
		slog.Bool("ok", err == nil),
	)
	if err != nil {
		return nil, err
	}

	return &Response{Provider: cfg.Provider, Body: decoded}, nil
}

func (g *Gateway) roundTrip(req *http.Request) (map[string]any, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.NewTransport(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransport(0, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewTransport(resp.StatusCode, fmt.Errorf("%s", truncate(string(data), 200)))
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.NewTransport(0, fmt.Errorf("decode response: %w", err))
	}
	return decoded, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
