// Package llm wraps the external text-generation services used to draft
// narrative pitches.
package llm

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/TobiSchelling/storyatlas/internal/config"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single generation.
type Options struct {
	// JSON asks the provider to return a single JSON object.
	JSON        bool
	MaxTokens   int
	Temperature float32
}

// Provider is the interface for LLM providers.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
	Name() string
	IsConfigured() bool
}

// CreateProvider creates an LLM provider based on configuration. Ollama is
// tried first when selected; OpenAI is the fallback. Returns nil when neither
// is usable.
func CreateProvider(cfg config.LLM) Provider {
	if strings.ToLower(cfg.Provider) == "ollama" {
		p := NewOllamaProvider(cfg.OllamaModel, cfg.OllamaURL)
		if p.IsConfigured() {
			log.Printf("Using Ollama with model: %s", cfg.OllamaModel)
			return p
		}
		log.Println("Ollama not available, trying OpenAI fallback...")
	}

	p := NewOpenAIProvider(cfg.OpenAIModel, os.Getenv(cfg.APIKeyEnv), cfg.BaseURL)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", cfg.OpenAIModel)
		return p
	}

	log.Printf("No LLM provider available. Check Ollama is running or set %s.", cfg.APIKeyEnv)
	return nil
}
