// Package ai provides factory functions for creating completion service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/tbqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/tbqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/tbqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	return ping(ctx, svc)
}

func ping(ctx context.Context, svc driven.LLMService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateLLMService creates the LLM service for the configured provider.
// Returns nil if the service is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI, "":
		return createOpenAILLM(settings)

	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOpenAILLM creates an OpenAI-compatible LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createAnthropicLLM creates an Anthropic LLM service. The local defaults for
// base URL and model are replaced by Anthropic's.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	baseURL, model := settings.BaseURL, settings.Model
	if baseURL == domain.DefaultLLMBaseURL {
		baseURL = ""
	}
	if model == domain.DefaultLLMModel {
		model = ""
	}
	apiKey := settings.APIKey
	if apiKey == domain.DefaultLLMAPIKey {
		apiKey = ""
	}

	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:            apiKey,
		BaseURL:           baseURL,
		Model:             model,
		Timeout:           settings.Timeout,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
