// Package llm generates an optional natural-language digest of a retrieval
// result set. It is advisory output only: rows and statuses are computed
// before any provider is consulted and never depend on one.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/OHDSI/searchpubmed/internal/model"
)

// Provider is a text-generation backend.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Summarize generates a digest of the retrieved corpus.
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks whether the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest carries the corpus and generation knobs.
type SummarizeRequest struct {
	Result model.Result

	// Prompt overrides the default corpus prompt when non-empty.
	Prompt string

	// Model overrides the configured model when non-empty.
	Model string

	MaxTokens int
}

// SummarizeResponse is the generated digest.
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// Config holds provider configuration.
type Config struct {
	// Provider name: "openai", "ollama" or "" for disabled.
	Provider string
	Model    string
	APIKey   string
	// BaseURL points at a custom endpoint, e.g. a local Ollama.
	BaseURL string
	// Timeout is in seconds.
	Timeout   int
	MaxTokens int
}

// DefaultConfig returns defaults with the summarizer disabled.
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 1000,
	}
}

// maxAbstractChars bounds how much of each abstract goes into the prompt.
const maxAbstractChars = 400

// BuildPrompt renders the default corpus prompt. Only retrieved titles and
// abstracts are offered, so the digest cannot cite records outside the
// result set.
func BuildPrompt(result model.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing the results of a biomedical literature search.

RULES:
1. Discuss ONLY the records listed below. Do not bring in outside knowledge.
2. If the set is too small or heterogeneous to summarize, say so.
3. Group records by theme where possible and mention PMIDs when referring to specific studies.

Query: %s
Records retrieved: %d

`, result.Query, len(result.Rows))

	for _, row := range result.Rows {
		fmt.Fprintf(&b, "PMID %s", row.PMID)
		if row.Metadata.Year != 0 {
			fmt.Fprintf(&b, " (%d", row.Metadata.Year)
			if row.Metadata.Journal != "" {
				fmt.Fprintf(&b, ", %s", row.Metadata.Journal)
			}
			b.WriteString(")")
		}
		fmt.Fprintf(&b, ": %s\n", row.Metadata.Title)
		if abstract := truncate(row.Metadata.Abstract, maxAbstractChars); abstract != "" {
			fmt.Fprintf(&b, "  %s\n", abstract)
		}
	}

	b.WriteString("\nWrite a concise digest of this corpus.\n")
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
