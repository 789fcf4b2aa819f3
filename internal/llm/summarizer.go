package llm

import (
	"context"
	"fmt"

	"github.com/OHDSI/searchpubmed/internal/model"
)

// Summarizer wraps an optional Provider. With no provider configured it is
// a no-op, so callers never branch on configuration themselves.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer builds a Summarizer from config. A disabled configuration
// is valid and yields a disabled Summarizer, not an error.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured.
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider's name, or "".
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary produces the corpus digest. Disabled summarizers return
// an empty string without error; an unreachable provider is an error the
// caller may treat as non-fatal.
func (s *Summarizer) GenerateSummary(ctx context.Context, result model.Result) (string, error) {
	if !s.IsEnabled() {
		return "", nil
	}
	if !s.provider.IsAvailable(ctx) {
		return "", fmt.Errorf("LLM provider %s is not available", s.provider.Name())
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Result:    result,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}
