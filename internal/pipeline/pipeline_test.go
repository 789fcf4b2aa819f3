package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/OHDSI/searchpubmed/internal/model"
)

const testJATS = `<pmc-articleset><article>` +
	`<front><title-group><article-title>Study One</article-title></title-group></front>` +
	`<body><sec><title>Methods</title><p>We did things.</p></sec></body>` +
	`</article></pmc-articleset>`

const testStub = `<pmc-articleset><article><front>` +
	`<title-group><article-title>Study Two</article-title></title-group>` +
	`</front></article></pmc-articleset>`

const testPage = `<html><body><main><p>Rendered full text.</p></main></body></html>`

// backend fakes the whole remote surface: esearch, elink, both efetch
// databases and the rendered article pages.
type backend struct {
	esearchIDs []string
	elink      map[string]string // pmid -> bare pmc number
	pmcXML     map[string]string // pmcid -> body
	pages      map[string]string // pmcid -> html

	mu    sync.Mutex // fetch workers hit the server concurrently
	calls map[string]int
}

func (b *backend) count(endpoint string) {
	b.mu.Lock()
	b.calls[endpoint]++
	b.mu.Unlock()
}

func (b *backend) callCount(endpoint string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[endpoint]
}

func newBackend() *backend {
	return &backend{
		elink:  map[string]string{},
		pmcXML: map[string]string{},
		pages:  map[string]string{},
		calls:  map[string]int{},
	}
}

func (b *backend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/esearch.fcgi":
			b.count("esearch")
			var ids strings.Builder
			for _, id := range b.esearchIDs {
				ids.WriteString("<Id>" + id + "</Id>")
			}
			fmt.Fprintf(w, "<eSearchResult><Count>%d</Count><IdList>%s</IdList></eSearchResult>",
				len(b.esearchIDs), ids.String())

		case r.URL.Path == "/elink.fcgi":
			b.count("elink")
			var sets strings.Builder
			for _, pmid := range r.URL.Query()["id"] {
				sets.WriteString("<LinkSet><IdList><Id>" + pmid + "</Id></IdList>")
				if num, ok := b.elink[pmid]; ok {
					sets.WriteString(`<LinkSetDb><DbTo>pmc</DbTo><LinkName>pubmed_pmc</LinkName>` +
						"<Link><Id>" + num + "</Id></Link></LinkSetDb>")
				}
				sets.WriteString("</LinkSet>")
			}
			fmt.Fprint(w, "<eLinkResult>"+sets.String()+"</eLinkResult>")

		case r.URL.Path == "/efetch.fcgi" && r.URL.Query().Get("db") == "pubmed":
			b.count("efetch-pubmed")
			var articles strings.Builder
			for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
				articles.WriteString("<PubmedArticle><MedlineCitation><PMID>" + id +
					"</PMID><Article><ArticleTitle>Title " + id +
					"</ArticleTitle></Article></MedlineCitation></PubmedArticle>")
			}
			fmt.Fprint(w, "<PubmedArticleSet>"+articles.String()+"</PubmedArticleSet>")

		case r.URL.Path == "/efetch.fcgi" && r.URL.Query().Get("db") == "pmc":
			b.count("efetch-pmc")
			body, ok := b.pmcXML[r.URL.Query().Get("id")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, body)

		case strings.HasPrefix(r.URL.Path, "/articles/"):
			b.count("page")
			id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/articles/"), "/")
			body, ok := b.pages[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, body)

		default:
			http.NotFound(w, r)
		}
	}
}

func testConfig(srv *httptest.Server) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Eutils.BaseURL = srv.URL
	cfg.Eutils.MinInterval = time.Millisecond
	cfg.Eutils.RetryDelay = time.Millisecond
	cfg.PMC.ArticleBaseURL = srv.URL + "/articles"
	cfg.PMC.RespectRobots = false
	cfg.Cache.Enabled = false
	cfg.Concurrency.FetchWorkers = 2
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	b := newBackend()
	b.esearchIDs = []string{"1", "2", "3"}
	b.elink = map[string]string{"1": "10", "2": "20"}
	b.pmcXML = map[string]string{"PMC10": testJATS, "PMC20": testStub}
	b.pages = map[string]string{"PMC20": testPage}

	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	p := New(testConfig(srv), zerolog.Nop())
	result, err := p.Run(context.Background(), "heart failure", 10)
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)

	assert.Equal(t, "heart failure", result.Query)
	assert.False(t, result.FetchedAt.IsZero())

	// rank order survives every downstream stage
	assert.Equal(t, []string{"1", "2", "3"},
		[]string{result.Rows[0].PMID, result.Rows[1].PMID, result.Rows[2].PMID})

	structured := result.Rows[0]
	assert.Equal(t, "PMC10", structured.PMCID)
	assert.Equal(t, model.FullTextXML, structured.FullTextStatus)
	require.NotEmpty(t, structured.Chunks)
	assert.Equal(t, "Study One", structured.Chunks[0].Text)
	assert.Equal(t, "Title 1", structured.Metadata.Title)

	rendered := result.Rows[1]
	assert.Equal(t, model.FullTextHTML, rendered.FullTextStatus)
	require.Len(t, rendered.Chunks, 1)
	assert.Equal(t, "Rendered full text.", rendered.Chunks[0].Text)

	unmapped := result.Rows[2]
	assert.Empty(t, unmapped.PMCID)
	assert.Equal(t, model.FullTextUnmapped, unmapped.FullTextStatus)
	assert.Empty(t, unmapped.Chunks)
	assert.Equal(t, "Title 3", unmapped.Metadata.Title)

	assert.Equal(t, model.Summary{
		Found: 3, Mapped: 2, WithMetadata: 3,
		FullTextXML: 1, FullTextHTML: 1, Unavailable: 0,
	}, result.Summary)
}

func TestRunEmptySearchStopsEarly(t *testing.T) {
	b := newBackend()
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	result, err := New(testConfig(srv), zerolog.Nop()).Run(context.Background(), "no hits", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, model.Summary{}, result.Summary)
	assert.Equal(t, 1, b.callCount("esearch"))
	assert.Zero(t, b.callCount("elink"), "no downstream calls for an empty search")
}

func TestRunSearchFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv), zerolog.Nop()).Run(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
}

func TestRunSharedDocumentFetchedOnce(t *testing.T) {
	b := newBackend()
	b.esearchIDs = []string{"1", "2"}
	b.elink = map[string]string{"1": "99", "2": "99"}
	b.pmcXML = map[string]string{"PMC99": testJATS}

	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	result, err := New(testConfig(srv), zerolog.Nop()).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, 1, b.callCount("efetch-pmc"), "shared PMC document fetched once")
	assert.Equal(t, result.Rows[0].Chunks, result.Rows[1].Chunks)
	assert.Equal(t, 1, result.Summary.FullTextXML, "summary counts documents, not rows")

	// rows hold independent copies
	result.Rows[0].Chunks[0].Text = "mutated"
	assert.NotEqual(t, result.Rows[0].Chunks[0].Text, result.Rows[1].Chunks[0].Text)
}

func TestRunUnavailableFullTextIsDataNotError(t *testing.T) {
	b := newBackend()
	b.esearchIDs = []string{"1"}
	b.elink = map[string]string{"1": "10"}
	// no XML, no page: PMC10 resolves nowhere

	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	result, err := New(testConfig(srv), zerolog.Nop()).Run(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, model.FullTextNotFound, result.Rows[0].FullTextStatus)
	assert.Equal(t, 1, result.Summary.Unavailable)
}
