package factory

import (
	"fmt"

	"ai-networking-be/pkg/llm"
	"ai-networking-be/pkg/llm/huggingface"
	"ai-networking-be/pkg/llm/ollama"
)

// NewLLMProvider builds the classifier backend. "rules" (or an empty type) yields
// a nil provider, which makes the classifier run on its deterministic rules only.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "", "rules":
		return nil, nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider requires an API key")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
