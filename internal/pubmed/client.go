package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/OHDSI/searchpubmed/internal/model"
	"github.com/OHDSI/searchpubmed/internal/transport"
)

// DefaultBaseURL is the production E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Config holds client settings. BaseURL is overridable so tests can point
// at an httptest server.
type Config struct {
	BaseURL    string
	APIKey     string
	BatchSize  int
	MaxResults int
	Logger     zerolog.Logger
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 100
	}
}

// Client talks to the E-utilities through the shared rate-limited transport.
type Client struct {
	config    Config
	transport *transport.Client
	logger    zerolog.Logger
}

// New creates a Client.
func New(cfg Config, t *transport.Client) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, transport: t, logger: cfg.Logger}
}

// Search resolves a free-text query to PMIDs via esearch. The ids come
// back in the order the service ranked them and are capped at maxResults
// (falling back to the configured default when maxResults <= 0). An empty
// result list is a valid outcome, not an error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", query)
	q.Set("retmode", "xml")
	q.Set("retmax", strconv.Itoa(maxResults))
	c.addKey(q)

	body, err := c.transport.Get(ctx, c.config.BaseURL+"/esearch.fcgi?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("esearch: parse response: %w", err)
	}

	ids := result.IDList.IDs
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// MapPMCIDs cross-references PMIDs to PMCIDs via elink, batching the ids
// to respect the per-call limit. The returned map is partial: a PMID with
// no PMC entry is simply absent, and several PMIDs may share one PMCID.
// A failed batch is logged and skipped (its ids stay unmapped) unless the
// context itself is done.
func (c *Client) MapPMCIDs(ctx context.Context, pmids []string) (map[string]string, error) {
	mapping := make(map[string]string)

	for _, batch := range batches(pmids, c.config.BatchSize) {
		q := url.Values{}
		q.Set("dbfrom", "pubmed")
		q.Set("db", "pmc")
		q.Set("retmode", "xml")
		c.addKey(q)
		// one id parameter per PMID keeps the response split into one
		// LinkSet per input, preserving the source of each mapping
		params := q.Encode()
		for _, pmid := range batch {
			params += "&id=" + url.QueryEscape(pmid)
		}

		body, err := c.transport.Get(ctx, c.config.BaseURL+"/elink.fcgi?"+params)
		if err != nil {
			if ctxErr(ctx, err) {
				return nil, fmt.Errorf("elink: %w", err)
			}
			c.logger.Warn().Err(err).Int("ids", len(batch)).Msg("elink batch failed, ids left unmapped")
			continue
		}

		var result ELinkResult
		if err := xml.Unmarshal(body, &result); err != nil {
			c.logger.Warn().Err(err).Msg("elink batch unparseable, ids left unmapped")
			continue
		}

		for _, set := range result.LinkSets {
			if len(set.IDList.IDs) == 0 {
				continue
			}
			pmid := set.IDList.IDs[0]
			if pmcid := firstPMCLink(set); pmcid != "" {
				mapping[pmid] = pmcid
			}
		}
	}

	return mapping, nil
}

// FetchMetadata retrieves bibliographic records for pmids via efetch,
// batched like MapPMCIDs. Field extraction is defensive: a record missing
// substructures yields zero-valued fields, and only a record with no PMID
// at all is dropped (with a warning).
func (c *Client) FetchMetadata(ctx context.Context, pmids []string) (map[string]model.Metadata, error) {
	records := make(map[string]model.Metadata)

	for _, batch := range batches(pmids, c.config.BatchSize) {
		q := url.Values{}
		q.Set("db", "pubmed")
		q.Set("id", strings.Join(batch, ","))
		q.Set("retmode", "xml")
		q.Set("rettype", "abstract")
		c.addKey(q)

		body, err := c.transport.Get(ctx, c.config.BaseURL+"/efetch.fcgi?"+q.Encode())
		if err != nil {
			if ctxErr(ctx, err) {
				return nil, fmt.Errorf("efetch: %w", err)
			}
			c.logger.Warn().Err(err).Int("ids", len(batch)).Msg("efetch batch failed, records missing")
			continue
		}

		var set PubmedArticleSet
		if err := xml.Unmarshal(body, &set); err != nil {
			c.logger.Warn().Err(err).Msg("efetch batch unparseable, records missing")
			continue
		}

		for _, article := range set.Articles {
			meta := extractMetadata(article)
			if meta.PMID == "" {
				c.logger.Warn().Str("title", meta.Title).Msg("record without PMID dropped")
				continue
			}
			records[meta.PMID] = meta
		}
	}

	return records, nil
}

func (c *Client) addKey(q url.Values) {
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
}

// firstPMCLink finds the first PMC link in a LinkSet, preferring the
// canonical pubmed_pmc link name when several link groups are present.
func firstPMCLink(set LinkSet) string {
	var fallback string
	for _, db := range set.LinkSetDBs {
		if db.DbTo != "pmc" || len(db.Links) == 0 {
			continue
		}
		id := normalizePMCID(db.Links[0].ID)
		if db.LinkName == "pubmed_pmc" {
			return id
		}
		if fallback == "" {
			fallback = id
		}
	}
	return fallback
}

// normalizePMCID ensures the "PMC" prefix; elink returns bare numeric ids.
func normalizePMCID(id string) string {
	if id == "" || strings.HasPrefix(id, "PMC") {
		return id
	}
	return "PMC" + id
}

// extractMetadata pulls the row fields out of one record, defaulting
// everything it cannot find.
func extractMetadata(article PubmedArticle) model.Metadata {
	citation := article.MedlineCitation
	meta := model.Metadata{
		PMID:    strings.TrimSpace(citation.PMID),
		Title:   strings.TrimSpace(citation.Article.ArticleTitle),
		Journal: strings.TrimSpace(citation.Article.Journal.Title),
	}
	meta.Year = extractYear(citation.Article.Journal.JournalIssue.PubDate)
	meta.Abstract = extractAbstract(citation.Article.Abstract)
	meta.Authors = extractAuthors(citation.Article.AuthorList)
	return meta
}

// extractYear reads the structured Year, falling back to the leading year
// of a MedlineDate such as "2020 Jan-Feb" or "2019-2020".
func extractYear(date PubDate) int {
	if y, err := strconv.Atoi(strings.TrimSpace(date.Year)); err == nil {
		return y
	}
	fields := strings.Fields(date.MedlineDate)
	if len(fields) == 0 {
		return 0
	}
	head := strings.SplitN(fields[0], "-", 2)[0]
	if y, err := strconv.Atoi(head); err == nil {
		return y
	}
	return 0
}

// extractAbstract joins labeled abstract sections ("Label: text").
func extractAbstract(abstract *Abstract) string {
	if abstract == nil {
		return ""
	}
	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// extractAuthors renders authors as "ForeName LastName", keeping citation
// order. Collective names pass through as-is; nameless entries are skipped.
func extractAuthors(list *AuthorList) []string {
	if list == nil {
		return nil
	}
	var authors []string
	for _, a := range list.Authors {
		switch {
		case a.CollectiveName != "":
			authors = append(authors, strings.TrimSpace(a.CollectiveName))
		case a.LastName != "":
			name := strings.TrimSpace(strings.TrimSpace(a.ForeName) + " " + a.LastName)
			authors = append(authors, name)
		}
	}
	return authors
}

// batches splits ids into slices of at most size elements.
func batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func ctxErr(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
