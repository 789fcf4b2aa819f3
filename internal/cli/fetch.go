package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/OHDSI/searchpubmed/internal/model"
	"github.com/OHDSI/searchpubmed/internal/pipeline"
	"github.com/OHDSI/searchpubmed/internal/query"
)

var (
	fetchStrategy   string
	fetchMaxResults int
	fetchFormat     string
	fetchOutput     string
	fetchTimeout    time.Duration
	fetchWorkers    int
	fetchInterval   time.Duration
	fetchNoCache    bool
	fetchNoRobots   bool
	fetchTables     bool
	fetchMinChunk   int
	llmEnabled      bool
	llmProvider     string
	llmModel        string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [query]",
	Short: "Run the retrieval pipeline for a query",
	Long: `Fetch searches PubMed, maps the hits to PMC, retrieves metadata and
full text and writes one row per article.

The query is either given verbatim or built from a named strategy
(see 'searchpubmed query --list').

Examples:
  searchpubmed fetch '"heart failure"[TIAB] AND registry[TIAB]'
  searchpubmed fetch --strategy strategy3 --max-results 50 --format csv -o chunks.csv
  searchpubmed fetch 'sepsis cohort' --llm --llm-provider ollama`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchStrategy, "strategy", "", "build the query from a named strategy instead of the argument")
	fetchCmd.Flags().IntVar(&fetchMaxResults, "max-results", 0, "cap on search hits (0 = configured default)")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "json", "output format (json, csv)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output path (default: stdout)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 15*time.Minute, "overall run timeout")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent full-text fetch workers (0 = configured default)")
	fetchCmd.Flags().DurationVar(&fetchInterval, "min-interval", 0, "minimum spacing between remote calls (0 = configured default)")
	fetchCmd.Flags().BoolVar(&fetchNoCache, "no-cache", false, "disable the in-process response cache")
	fetchCmd.Flags().BoolVar(&fetchNoRobots, "no-robots", false, "skip robots.txt checks on rendered-page fetches")
	fetchCmd.Flags().BoolVar(&fetchTables, "include-tables", false, "emit one chunk per table cell")
	fetchCmd.Flags().IntVar(&fetchMinChunk, "min-chunk-length", 0, "drop chunks shorter than this many characters")

	fetchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM digest of the corpus")
	fetchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	fetchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default when empty)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	queryString, err := resolveQuery(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if fetchWorkers > 0 {
		cfg.Concurrency.FetchWorkers = fetchWorkers
	}
	if fetchInterval > 0 {
		cfg.Eutils.MinInterval = fetchInterval
	}
	if fetchNoCache {
		cfg.Cache.Enabled = false
	}
	if fetchNoRobots {
		cfg.PMC.RespectRobots = false
	}
	if fetchTables {
		cfg.Chunks.IncludeTableCells = true
	}
	if fetchMinChunk > 0 {
		cfg.Chunks.MinLength = fetchMinChunk
	}
	if err := configureLLM(cfg); err != nil {
		return err
	}

	renderer, err := pipeline.NewRenderer(fetchFormat)
	if err != nil {
		return err
	}

	logger := newLogger()
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	result, err := pipeline.New(cfg, logger).Run(ctx, queryString, fetchMaxResults)
	if err != nil {
		return err
	}

	out := os.Stdout
	if fetchOutput != "" {
		f, err := os.Create(fetchOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := renderer.Render(out, result); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	renderer.RenderSummary(os.Stderr, result)
	return nil
}

// resolveQuery picks between a verbatim query argument and a strategy name.
func resolveQuery(args []string) (string, error) {
	if fetchStrategy != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("give either a query argument or --strategy, not both")
		}
		s, ok := query.StrategyByName(fetchStrategy)
		if !ok {
			return "", fmt.Errorf("unknown strategy %q, see 'searchpubmed query --list'", fetchStrategy)
		}
		return query.Build(s.Options), nil
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("a query argument or --strategy is required")
	}
	return args[0], nil
}

func configureLLM(cfg *model.Config) error {
	if !llmEnabled {
		cfg.LLM.Provider = ""
		return nil
	}
	cfg.LLM.Provider = llmProvider
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	switch llmProvider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		if base := os.Getenv("OLLAMA_BASE_URL"); base != "" {
			cfg.LLM.BaseURL = base
		}
	}
	return nil
}
