package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrNoProvider is returned when the configured provider name is unknown.
var ErrNoProvider = errors.New("no LLM provider registered under that name")

// Turn is one prior exchange handed to the model for context.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// InlineFile is an attachment forwarded to providers that accept file input.
type InlineFile struct {
	MimeType string
	Data     string // base64-encoded content
}

// Request is a provider-agnostic completion request.
type Request struct {
	System  string // system / grounding instructions (web search snippets land here)
	History []Turn
	Text    string
	File    *InlineFile
}

// Provider defines the standard interface for all chat completion backends.
type Provider interface {
	// Name returns the registry key for the provider ("gemini", "groq").
	Name() string

	// Generate produces a single reply for the request. Implementations must
	// honor ctx cancellation and return an error on any non-2xx upstream status.
	Generate(ctx context.Context, req Request) (string, error)
}

// Registry holds the mapping between provider names and their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider implementation to the registry.
func (r *Registry) Register(p Provider) {
	if _, exists := r.providers[p.Name()]; exists {
		log.Printf("WARN [LLMRegistry] Provider '%s' is already registered. Overwriting.", p.Name())
	}
	r.providers[p.Name()] = p
	log.Printf("[LLMRegistry] Registered LLM provider: %s", p.Name())
}

// Get retrieves a provider implementation from the registry by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, name)
	}
	return p, nil
}
