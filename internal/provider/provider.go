// Package provider abstracts over the supported model providers. Both speak
// the OpenAI-compatible chat completions wire format, so a single client
// library serves gemini and groq through per-provider base URLs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agentchat/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

const (
	Gemini = "gemini"
	Groq   = "groq"
)

type UnsupportedProviderError struct {
	Name string
}

func (e UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider %q: use %q or %q", e.Name, Gemini, Groq)
}

type MissingCredentialError struct {
	Provider string
	EnvVar   string
}

func (e MissingCredentialError) Error() string {
	return fmt.Sprintf("%s: %s is not configured", e.Provider, e.EnvVar)
}

// ChatModel is an invocable model handle bound to a provider, model name and
// temperature.
type ChatModel interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
	Provider() string
	Model() string
}

type ModelInfo struct {
	Provider     string   `json:"provider"`
	Models       []string `json:"models"`
	CurrentModel string   `json:"currentModel"`
	Temperature  float32  `json:"temperature"`
}

type service struct {
	name         string
	client       *openai.Client
	defaultModel string
	defaultTemp  float32
	models       []string
}

type Gateway struct {
	services map[string]*service
	order    []string
}

// New constructs the gateway. A missing provider credential fails here, not at
// call time.
func New(cfg config.Config, httpClient *http.Client) (*Gateway, error) {
	gemini, err := newService(Gemini, cfg.GeminiAPIKey, "GEMINI_API_KEY", cfg.GeminiBaseURL,
		cfg.GeminiModel, cfg.GeminiTemperature, []string{"gemini-2.0-flash", "gemini-1.5-flash"}, httpClient)
	if err != nil {
		return nil, err
	}

	groq, err := newService(Groq, cfg.GroqAPIKey, "GROQ_API_KEY", cfg.GroqBaseURL,
		cfg.GroqModel, cfg.GroqTemperature, []string{"llama-3.3-70b-versatile"}, httpClient)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		services: map[string]*service{Gemini: gemini, Groq: groq},
		order:    []string{Gemini, Groq},
	}, nil
}

func newService(name, apiKey, envVar, baseURL, defaultModel string, defaultTemp float32, models []string, httpClient *http.Client) (*service, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, MissingCredentialError{Provider: name, EnvVar: envVar}
	}

	clientCfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	clientCfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	return &service{
		name:         name,
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: defaultModel,
		defaultTemp:  defaultTemp,
		models:       models,
	}, nil
}

// Handle returns an invocable model for the named provider. Provider matching
// is case-insensitive; empty model or temperature substitute the provider's
// configured defaults.
func (g *Gateway) Handle(providerName, modelName string, temperature *float32) (ChatModel, error) {
	svc, ok := g.services[strings.ToLower(strings.TrimSpace(providerName))]
	if !ok {
		return nil, UnsupportedProviderError{Name: providerName}
	}

	model := strings.TrimSpace(modelName)
	if model == "" {
		model = svc.defaultModel
	}

	temp := svc.defaultTemp
	if temperature != nil {
		temp = *temperature
	}

	return handle{svc: svc, model: model, temperature: temp}, nil
}

// DefaultModel reports the configured default model for a provider.
func (g *Gateway) DefaultModel(providerName string) (string, error) {
	svc, ok := g.services[strings.ToLower(strings.TrimSpace(providerName))]
	if !ok {
		return "", UnsupportedProviderError{Name: providerName}
	}
	return svc.defaultModel, nil
}

// Catalog lists every offered provider with its models and defaults.
func (g *Gateway) Catalog() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(g.order))
	for _, name := range g.order {
		svc := g.services[name]
		out[name] = ModelInfo{
			Provider:     name,
			Models:       append([]string(nil), svc.models...),
			CurrentModel: svc.defaultModel,
			Temperature:  svc.defaultTemp,
		}
	}
	return out
}

type handle struct {
	svc         *service
	model       string
	temperature float32
}

func (h handle) Provider() string { return h.svc.name }
func (h handle) Model() string    { return h.model }

func (h handle) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	resp, err := h.svc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.model,
		Temperature: h.temperature,
		Messages:    messages,
		Tools:       tools,
	})
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%s chat completion: %w", h.svc.name, err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New(h.svc.name + " returned no choices")
	}
	return resp.Choices[0].Message, nil
}
