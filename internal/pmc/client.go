// Package pmc retrieves article full text from PubMed Central, preferring
// structured JATS XML and falling back to the rendered article page.
// Unavailability is data, not an error: every id yields an Outcome.
package pmc

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/OHDSI/searchpubmed/internal/model"
	"github.com/OHDSI/searchpubmed/internal/transport"
	"github.com/OHDSI/searchpubmed/internal/util"
	"github.com/OHDSI/searchpubmed/internal/worker"
)

// DefaultArticleBaseURL is the production base of the rendered article pages.
const DefaultArticleBaseURL = "https://pmc.ncbi.nlm.nih.gov/articles"

// DefaultEutilsBaseURL is the production E-utilities endpoint.
const DefaultEutilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// errNoStructuredText marks an efetch response that came back 200 but does
// not contain a usable JATS article, e.g. a stub for a non-open-access
// record.
var errNoStructuredText = errors.New("response carries no structured full text")

// Reason says why full text is unavailable.
type Reason string

const (
	// ReasonNotFound: the id resolves to nothing at either endpoint.
	ReasonNotFound Reason = "not_found"
	// ReasonFetchError: a retrieval attempt failed outright.
	ReasonFetchError Reason = "fetch_error"
	// ReasonEmpty: the record exists but yielded no usable text.
	ReasonEmpty Reason = "empty"
)

// Outcome is the result of one full-text attempt. Exactly one of XML,
// HTMLText or Reason is populated.
type Outcome struct {
	PMCID    string
	XML      []byte
	HTMLText string
	Reason   Reason
	Err      error
}

// Available reports whether any full text was retrieved.
func (o Outcome) Available() bool { return o.Reason == "" }

// Structured reports whether the outcome carries JATS XML.
func (o Outcome) Structured() bool { return len(o.XML) > 0 }

// Text returns whatever text the outcome carries, raw XML included.
func (o Outcome) Text() string {
	if o.Structured() {
		return string(o.XML)
	}
	return o.HTMLText
}

// Status maps the outcome onto the row-level full-text status.
func (o Outcome) Status() model.FullTextStatus {
	switch {
	case o.Structured():
		return model.FullTextXML
	case o.HTMLText != "":
		return model.FullTextHTML
	case o.Reason == ReasonNotFound:
		return model.FullTextNotFound
	case o.Reason == ReasonEmpty:
		return model.FullTextEmpty
	default:
		return model.FullTextFetchError
	}
}

// Config holds client settings. Both base URLs are overridable so tests
// can point at httptest servers.
type Config struct {
	EutilsBaseURL  string
	ArticleBaseURL string
	APIKey         string
	Workers        int
	// Robots, when non-nil, gates rendered-page fetches. The structured
	// API endpoint is not subject to it.
	Robots *util.RobotsChecker
	Logger zerolog.Logger
}

func (c *Config) applyDefaults() {
	if c.EutilsBaseURL == "" {
		c.EutilsBaseURL = DefaultEutilsBaseURL
	}
	if c.ArticleBaseURL == "" {
		c.ArticleBaseURL = DefaultArticleBaseURL
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Client fetches full text through the shared rate-limited transport.
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

// FetchOne attempts the structured JATS XML first and the rendered article
// page second. It never returns an error: whatever happens is encoded in
// the Outcome, so one bad id cannot sink a batch.
func (c *Client) FetchOne(ctx context.Context, pmcid string) Outcome {
	body, xmlErr := c.fetchXML(ctx, pmcid)
	if xmlErr == nil {
		return Outcome{PMCID: pmcid, XML: body}
	}
	if ctx.Err() != nil {
		return Outcome{PMCID: pmcid, Reason: ReasonFetchError, Err: ctx.Err()}
	}
	c.logger.Debug().Str("pmcid", pmcid).Err(xmlErr).Msg("no structured full text, trying rendered page")

	text, htmlErr := c.fetchHTML(ctx, pmcid)
	if htmlErr == nil {
		if text == "" {
			return Outcome{PMCID: pmcid, Reason: ReasonEmpty}
		}
		return Outcome{PMCID: pmcid, HTMLText: text}
	}

	return Outcome{PMCID: pmcid, Reason: classify(xmlErr, htmlErr), Err: htmlErr}
}

// FetchMany fetches the ids concurrently on a worker pool and returns one
// Outcome per id. Order of completion does not matter; the map is keyed by
// PMCID.
func (c *Client) FetchMany(ctx context.Context, pmcids []string) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(pmcids))
	if len(pmcids) == 0 {
		return outcomes
	}

	pool := worker.NewPool(c.config.Workers)
	pool.Start()
	for _, pmcid := range pmcids {
		pool.Submit(&fetchJob{ctx: ctx, client: c, pmcid: pmcid})
	}
	for _, res := range pool.Wait() {
		o := res.(*fetchResult).outcome
		outcomes[o.PMCID] = o
	}
	return outcomes
}

func (c *Client) fetchXML(ctx context.Context, pmcid string) ([]byte, error) {
	q := url.Values{}
	q.Set("db", "pmc")
	q.Set("id", pmcid)
	q.Set("retmode", "xml")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	body, err := c.transport.Get(ctx, c.config.EutilsBaseURL+"/efetch.fcgi?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if !looksLikeJATS(body) {
		return nil, errNoStructuredText
	}
	return body, nil
}

func (c *Client) fetchHTML(ctx context.Context, pmcid string) (string, error) {
	pageURL := c.config.ArticleBaseURL + "/" + pmcid + "/"

	if c.config.Robots != nil {
		allowed, err := c.config.Robots.CanFetch(ctx, pageURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", errors.New("disallowed by robots.txt")
		}
	}

	body, err := c.transport.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return VisibleText(body)
}

// looksLikeJATS reports whether doc is well-formed XML containing an
// <article> whose <body> holds actual text. efetch answers 200 with a stub
// for ids it cannot serve, so status alone proves nothing.
func looksLikeJATS(doc []byte) bool {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	sawArticle := false
	bodyDepth := 0
	for {
		tok, err := decoder.Token()
		if err != nil {
			// io.EOF means well-formed but no body text found
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "article" {
				sawArticle = true
			}
			if bodyDepth > 0 {
				bodyDepth++
			} else if sawArticle && t.Name.Local == "body" {
				bodyDepth = 1
			}
		case xml.EndElement:
			if bodyDepth > 0 {
				bodyDepth--
			}
		case xml.CharData:
			if bodyDepth > 0 && len(bytes.TrimSpace(t)) > 0 {
				return true
			}
		}
	}
}

// classify turns the pair of failed attempts into a single reason. A 404
// from both endpoints means the record does not exist; a structured stub
// plus a missing page means the record holds nothing usable; anything else
// is a retrieval failure.
func classify(xmlErr, htmlErr error) Reason {
	if notFound(htmlErr) {
		if notFound(xmlErr) {
			return ReasonNotFound
		}
		if errors.Is(xmlErr, errNoStructuredText) {
			return ReasonEmpty
		}
	}
	return ReasonFetchError
}

func notFound(err error) bool {
	var perm *transport.PermanentError
	return errors.As(err, &perm) && perm.NotFound()
}

type fetchJob struct {
	ctx    context.Context
	client *Client
	pmcid  string
}

type fetchResult struct {
	outcome Outcome
}

func (r *fetchResult) GetError() error {
	if r.outcome.Available() {
		return nil
	}
	return r.outcome.Err
}

// Execute runs under the caller's context, not the pool's; a cancelled
// pipeline should stop in-flight fetches too.
func (j *fetchJob) Execute(_ context.Context) worker.Result {
	return &fetchResult{outcome: j.client.FetchOne(j.ctx, j.pmcid)}
}
