// Package pipeline wires search, id mapping, metadata, full text and
// chunking into one run. Degradation is the normal mode: every stage after
// the search may lose records, and the losses are reported in the summary
// instead of aborting the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/OHDSI/searchpubmed/internal/cache"
	"github.com/OHDSI/searchpubmed/internal/jats"
	"github.com/OHDSI/searchpubmed/internal/llm"
	"github.com/OHDSI/searchpubmed/internal/model"
	"github.com/OHDSI/searchpubmed/internal/pmc"
	"github.com/OHDSI/searchpubmed/internal/pubmed"
	"github.com/OHDSI/searchpubmed/internal/transport"
	"github.com/OHDSI/searchpubmed/internal/util"
)

// Pipeline orchestrates one retrieval run.
type Pipeline struct {
	pubmed     *pubmed.Client
	pmc        *pmc.Client
	summarizer *llm.Summarizer
	config     *model.Config
	logger     zerolog.Logger
}

// New assembles a Pipeline from the runtime configuration. All remote
// calls share one rate-limited transport, so the courtesy limit holds
// across concurrent fetch workers.
func New(cfg *model.Config, logger zerolog.Logger) *Pipeline {
	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		responseCache = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
	}

	shared := transport.New(transport.Options{
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		MinInterval:  cfg.Eutils.MinInterval,
		MaxRetries:   cfg.Eutils.MaxRetries,
		RetryDelay:   cfg.Eutils.RetryDelay,
		Cache:        responseCache,
		CacheTTL:     cfg.Cache.TTL,
		Logger:       logger,
	})

	var robots *util.RobotsChecker
	if cfg.PMC.RespectRobots {
		robots = util.NewRobotsChecker(shared, cfg.HTTP.UserAgent)
	}

	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logger.Warn().Err(err).Msg("LLM summarizer disabled")
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		pubmed: pubmed.New(pubmed.Config{
			BaseURL:    cfg.Eutils.BaseURL,
			APIKey:     cfg.Eutils.APIKey,
			BatchSize:  cfg.Eutils.BatchSize,
			MaxResults: cfg.Eutils.MaxResults,
			Logger:     logger,
		}, shared),
		pmc: pmc.New(pmc.Config{
			EutilsBaseURL:  cfg.Eutils.BaseURL,
			ArticleBaseURL: cfg.PMC.ArticleBaseURL,
			APIKey:         cfg.Eutils.APIKey,
			Workers:        cfg.Concurrency.FetchWorkers,
			Robots:         robots,
			Logger:         logger,
		}, shared),
		summarizer: summarizer,
		config:     cfg,
		logger:     logger,
	}
}

// fullText is the resolved (status, chunks) pair for one PMC document.
type fullText struct {
	status model.FullTextStatus
	chunks []model.Chunk
}

// Run executes the pipeline for one query. Only a failed search is fatal;
// everything downstream degrades into statuses and summary counts. An
// empty search result yields a result with zero rows.
func (p *Pipeline) Run(ctx context.Context, queryString string, maxResults int) (*model.Result, error) {
	pmids, err := p.pubmed.Search(ctx, queryString, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result := &model.Result{
		Query:     queryString,
		FetchedAt: time.Now().UTC(),
	}
	result.Summary.Found = len(pmids)
	p.logger.Info().Int("pmids", len(pmids)).Msg("search complete")
	if len(pmids) == 0 {
		return result, nil
	}

	mapping, err := p.pubmed.MapPMCIDs(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("map pmcids: %w", err)
	}
	result.Summary.Mapped = len(mapping)

	records, err := p.pubmed.FetchMetadata(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	result.Summary.WithMetadata = len(records)

	// several PMIDs may share one PMC document; fetch each once
	pmcids := distinctPMCIDs(pmids, mapping)
	outcomes := p.pmc.FetchMany(ctx, pmcids)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make(map[string]fullText, len(outcomes))
	for pmcid, outcome := range outcomes {
		ft := p.resolveFullText(outcome)
		texts[pmcid] = ft
		switch ft.status {
		case model.FullTextXML:
			result.Summary.FullTextXML++
		case model.FullTextHTML:
			result.Summary.FullTextHTML++
		default:
			result.Summary.Unavailable++
		}
	}

	// rows keep the search's rank order, one per PMID
	for _, pmid := range pmids {
		row := model.Row{PMID: pmid, Metadata: model.Metadata{PMID: pmid}}
		if meta, ok := records[pmid]; ok {
			row.Metadata = meta
		}

		pmcid, mapped := mapping[pmid]
		if !mapped {
			row.FullTextStatus = model.FullTextUnmapped
		} else {
			row.PMCID = pmcid
			ft := texts[pmcid]
			row.FullTextStatus = ft.status
			// copy so rows sharing a document stay independent
			row.Chunks = append([]model.Chunk(nil), ft.chunks...)
		}
		result.Rows = append(result.Rows, row)
	}

	p.addLLMSummary(ctx, result)
	return result, nil
}

// resolveFullText turns a fetch outcome into row chunks. Structured XML
// that the extractor rejects or that yields nothing counts as empty, not
// as an error; rendered pages become a single paragraph chunk.
func (p *Pipeline) resolveFullText(outcome pmc.Outcome) fullText {
	switch {
	case outcome.Structured():
		chunks, err := jats.ExtractChunks(outcome.XML, jats.Options{
			MinLength:         p.config.Chunks.MinLength,
			IncludeTableCells: p.config.Chunks.IncludeTableCells,
		})
		if err != nil {
			p.logger.Warn().Str("pmcid", outcome.PMCID).Err(err).Msg("structured text not chunkable")
			return fullText{status: model.FullTextEmpty}
		}
		if len(chunks) == 0 {
			return fullText{status: model.FullTextEmpty}
		}
		return fullText{status: model.FullTextXML, chunks: chunks}

	case outcome.HTMLText != "":
		return fullText{
			status: model.FullTextHTML,
			chunks: []model.Chunk{{Text: outcome.HTMLText, Role: model.RoleParagraph}},
		}

	default:
		if outcome.Err != nil {
			p.logger.Warn().Str("pmcid", outcome.PMCID).Err(outcome.Err).Msg("full text unavailable")
		}
		return fullText{status: outcome.Status()}
	}
}

func (p *Pipeline) addLLMSummary(ctx context.Context, result *model.Result) {
	if !p.summarizer.IsEnabled() {
		return
	}
	summary, err := p.summarizer.GenerateSummary(ctx, *result)
	if err != nil {
		p.logger.Warn().Err(err).Msg("LLM summary skipped")
		return
	}
	result.LLMSummary = summary
}

// distinctPMCIDs lists each mapped PMCID once, in first-appearance order.
func distinctPMCIDs(pmids []string, mapping map[string]string) []string {
	seen := make(map[string]bool, len(mapping))
	var out []string
	for _, pmid := range pmids {
		pmcid, ok := mapping[pmid]
		if !ok || seen[pmcid] {
			continue
		}
		seen[pmcid] = true
		out = append(out, pmcid)
	}
	return out
}
