package model

import "time"

// Config is the complete runtime configuration, assembled from defaults,
// the config file, environment variables and CLI flags.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Eutils      EutilsConfig      `yaml:"eutils" mapstructure:"eutils"`
	PMC         PMCConfig         `yaml:"pmc" mapstructure:"pmc"`
	Chunks      ChunkConfig       `yaml:"chunks" mapstructure:"chunks"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig holds transport-level settings shared by all remote calls.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// EutilsConfig holds settings for the NCBI E-utilities API.
type EutilsConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// APIKey raises NCBI's courtesy limit from 3 to 10 requests per second.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// MinInterval is the minimum spacing between the starts of any two
	// outbound calls, process-wide.
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	// BatchSize caps how many ids are packed into one elink/efetch call.
	BatchSize  int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// PMCConfig holds settings for the PMC full-text store.
type PMCConfig struct {
	// ArticleBaseURL is the base of the rendered article pages used as the
	// fallback when JATS XML is not available.
	ArticleBaseURL string `yaml:"article_base_url" mapstructure:"article_base_url"`
	RespectRobots  bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// ChunkConfig controls the JATS chunk extractor.
type ChunkConfig struct {
	// MinLength drops chunks shorter than this after trimming.
	MinLength         int  `yaml:"min_length" mapstructure:"min_length"`
	IncludeTableCells bool `yaml:"include_table_cells" mapstructure:"include_table_cells"`
}

// ConcurrencyConfig controls worker counts.
type ConcurrencyConfig struct {
	FetchWorkers int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
}

// CacheConfig controls the in-process response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LLMConfig configures the optional corpus summarizer.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls CLI output behaviour.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults. Without an API key NCBI asks
// for at most 3 requests per second, hence the 334ms interval.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "searchpubmed/0.1 (+https://github.com/OHDSI/searchpubmed)",
			MaxBodyBytes: 20_000_000,
		},
		Eutils: EutilsConfig{
			BaseURL:     "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			MinInterval: 334 * time.Millisecond,
			MaxRetries:  3,
			RetryDelay:  time.Second,
			BatchSize:   200,
			MaxResults:  100,
		},
		PMC: PMCConfig{
			ArticleBaseURL: "https://pmc.ncbi.nlm.nih.gov/articles",
			RespectRobots:  true,
		},
		Chunks: ChunkConfig{
			MinLength:         1,
			IncludeTableCells: false,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 1000,
		},
		Output: OutputConfig{},
	}
}
