package pmc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHDSI/searchpubmed/internal/model"
	"github.com/OHDSI/searchpubmed/internal/transport"
	"github.com/OHDSI/searchpubmed/internal/util"
)

const jatsDoc = `<pmc-articleset><article>` +
	`<front><title-group><article-title>T</article-title></title-group></front>` +
	`<body><sec><title>Intro</title><p>Structured text.</p></sec></body>` +
	`</article></pmc-articleset>`

// stubDoc is what efetch answers for records it cannot serve: 200, valid
// XML, no article body.
const stubDoc = `<pmc-articleset><article><front>` +
	`<title-group><article-title>T</article-title></title-group>` +
	`</front></article></pmc-articleset>`

const articlePage = `<html><head><script>tracker()</script></head><body>` +
	`<nav>Home | Search</nav>` +
	`<main><p>Rendered paragraph one.</p><p>And two.</p></main>` +
	`<footer>NIH</footer></body></html>`

// pmcServer fakes both endpoints on one host: /efetch.fcgi for structured
// XML and /articles/<id>/ for rendered pages. Behaviour is keyed by id.
type pmcServer struct {
	xml   map[string]string // id -> body, absent means 404
	pages map[string]string // id -> html, absent means 404
}

func (s *pmcServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/efetch.fcgi":
			body, ok := s.xml[r.URL.Query().Get("id")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, body)
		case strings.HasPrefix(r.URL.Path, "/articles/"):
			id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/articles/"), "/")
			body, ok := s.pages[id]
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

func newTestClient(srv *httptest.Server, workers int) *Client {
	t := transport.New(transport.Options{
		MinInterval: time.Millisecond,
		RetryDelay:  time.Millisecond,
	})
	return New(Config{
		EutilsBaseURL:  srv.URL,
		ArticleBaseURL: srv.URL + "/articles",
		Workers:        workers,
	}, t)
}

func TestFetchOnePrefersStructuredXML(t *testing.T) {
	backend := &pmcServer{
		xml:   map[string]string{"PMC1": jatsDoc},
		pages: map[string]string{"PMC1": articlePage},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC1")
	assert.True(t, out.Available())
	assert.True(t, out.Structured())
	assert.Equal(t, model.FullTextXML, out.Status())
	assert.Contains(t, out.Text(), "Structured text.")
}

func TestFetchOneFallsBackToRenderedPage(t *testing.T) {
	backend := &pmcServer{
		xml:   map[string]string{"PMC2": stubDoc},
		pages: map[string]string{"PMC2": articlePage},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC2")
	assert.True(t, out.Available())
	assert.False(t, out.Structured())
	assert.Equal(t, model.FullTextHTML, out.Status())
	assert.Equal(t, "Rendered paragraph one. And two.", out.HTMLText)
}

func TestFetchOneNotFound(t *testing.T) {
	srv := httptest.NewServer((&pmcServer{}).handler())
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC404")
	assert.False(t, out.Available())
	assert.Equal(t, ReasonNotFound, out.Reason)
	assert.Equal(t, model.FullTextNotFound, out.Status())
	assert.Empty(t, out.Text())
}

func TestFetchOneEmptyWhenRecordHasNoUsableText(t *testing.T) {
	// the structured endpoint knows the id but serves a stub, and no
	// rendered page exists
	backend := &pmcServer{xml: map[string]string{"PMC3": stubDoc}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC3")
	assert.Equal(t, ReasonEmpty, out.Reason)
	assert.Equal(t, model.FullTextEmpty, out.Status())
}

func TestFetchOneEmptyWhenPageHasNoVisibleText(t *testing.T) {
	backend := &pmcServer{
		pages: map[string]string{"PMC4": `<html><body><script>x()</script></body></html>`},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC4")
	assert.Equal(t, ReasonEmpty, out.Reason)
}

func TestFetchOneFetchErrorOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := newTestClient(srv, 1).FetchOne(context.Background(), "PMC5")
	assert.Equal(t, ReasonFetchError, out.Reason)
	assert.Equal(t, model.FullTextFetchError, out.Status())
	assert.Error(t, out.Err)
}

func TestFetchOneRespectsRobots(t *testing.T) {
	backend := &pmcServer{pages: map[string]string{"PMC6": articlePage}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /articles/\n")
			return
		}
		backend.handler()(w, r)
	}))
	defer srv.Close()

	tr := transport.New(transport.Options{
		MinInterval: time.Millisecond,
		RetryDelay:  time.Millisecond,
	})
	client := New(Config{
		EutilsBaseURL:  srv.URL,
		ArticleBaseURL: srv.URL + "/articles",
		Robots:         util.NewRobotsChecker(tr, "searchpubmed-test"),
	}, tr)

	out := client.FetchOne(context.Background(), "PMC6")
	assert.Equal(t, ReasonFetchError, out.Reason)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "robots")
}

func TestFetchManyIsolatesFailures(t *testing.T) {
	backend := &pmcServer{
		xml:   map[string]string{"PMC1": jatsDoc},
		pages: map[string]string{"PMC2": articlePage},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	ids := []string{"PMC1", "PMC2", "PMC404"}
	outcomes := newTestClient(srv, 3).FetchMany(context.Background(), ids)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes["PMC1"].Structured())
	assert.Equal(t, model.FullTextHTML, outcomes["PMC2"].Status())
	assert.Equal(t, ReasonNotFound, outcomes["PMC404"].Reason)
}

func TestFetchManyEmptyInput(t *testing.T) {
	srv := httptest.NewServer((&pmcServer{}).handler())
	defer srv.Close()

	outcomes := newTestClient(srv, 2).FetchMany(context.Background(), nil)
	assert.Empty(t, outcomes)
}

func TestLooksLikeJATS(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want bool
	}{
		"wrapped article":  {jatsDoc, true},
		"bare article":     {`<article><body><p>x</p></body></article>`, true},
		"front-only stub":  {stubDoc, false},
		"empty body":       {`<article><body><p>  </p></body></article>`, false},
		"efetch error doc": {`<eFetchResult><ERROR>cannot get document</ERROR></eFetchResult>`, false},
		"malformed":        {`<article><body>`, false},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, looksLikeJATS([]byte(tc.doc)), name)
	}
}
