// Package llm talks to the chat-completion backends that interpret user messages.
//
// Two interchangeable providers are supported, selected per call from the
// environment: a local Ollama server and the DeepSeek hosted API. Each
// provider variant knows its endpoint path, its auth rule and where the
// assistant text lives in the response body.
package llm

import (
	"net/http"
	"os"
	"strings"

	"github.com/nas/track-learning/internal/errors"
)

// Environment variables read on every call.
const (
	EnvProvider = "LLM_PROVIDER"
	EnvBaseURL  = "LLM_BASE_URL"
	EnvModel    = "LLM_MODEL"
	EnvAPIKey   = "LLM_API_KEY"
)

// Provider is one chat-completion backend variant.
type Provider interface {
	// Name is the LLM_PROVIDER value that selects this variant.
	Name() string
	// Endpoint returns the chat URL under baseURL.
	Endpoint(baseURL string) string
	// Authorize adds credentials to an outgoing request.
	Authorize(req *http.Request, apiKey string)
	// Content pulls the assistant text out of a decoded response body.
	Content(body map[string]any) string
}

type ollamaProvider struct{}

func (ollamaProvider) Name() string { return "ollama" }

func (ollamaProvider) Endpoint(baseURL string) string {
	return baseURL + "/api/chat"
}

func (ollamaProvider) Authorize(*http.Request, string) {}

// Content reads message.content.
func (ollamaProvider) Content(body map[string]any) string {
	msg, _ := body["message"].(map[string]any)
	s, _ := msg["content"].(string)
	return s
}

type deepseekProvider struct{}

func (deepseekProvider) Name() string { return "deepseek" }

func (deepseekProvider) Endpoint(baseURL string) string {
	return baseURL + "/v1/chat/completions"
}

func (deepseekProvider) Authorize(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// Content reads choices[0].message.content.
func (deepseekProvider) Content(body map[string]any) string {
	choices, _ := body["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}
	first, _ := choices[0].(map[string]any)
	msg, _ := first["message"].(map[string]any)
	s, _ := msg["content"].(string)
	return s
}

// Ollama and DeepSeek are the supported provider variants.
var (
	Ollama   Provider = ollamaProvider{}
	DeepSeek Provider = deepseekProvider{}
)

// ProviderConfig is a resolved provider selection.
type ProviderConfig struct {
	Provider Provider
	BaseURL  string
	Model    string
	APIKey   string
}

// ResolveConfig reads the LLM_* variables through getenv.
// A nil getenv reads the process environment.
func ResolveConfig(getenv func(string) string) (*ProviderConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	name := strings.ToLower(strings.TrimSpace(getenv(EnvProvider)))
	if name == "" {
		name = Ollama.Name()
	}

	switch name {
	case Ollama.Name():
		return &ProviderConfig{
			Provider: Ollama,
			BaseURL:  envOr(getenv, EnvBaseURL, "http://localhost:11434"),
			Model:    envOr(getenv, EnvModel, "llama3.1:8b"),
		}, nil
	case DeepSeek.Name():
		apiKey := getenv(EnvAPIKey)
		if apiKey == "" {
			return nil, errors.NewConfiguration("Missing LLM_API_KEY for DeepSeek")
		}
		return &ProviderConfig{
			Provider: DeepSeek,
			BaseURL:  envOr(getenv, EnvBaseURL, "https://api.deepseek.com"),
			Model:    envOr(getenv, EnvModel, "deepseek-chat"),
			APIKey:   apiKey,
		}, nil
	default:
		return nil, errors.NewConfiguration("Unsupported LLM provider: " + name)
	}
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
