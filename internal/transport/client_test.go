package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHDSI/searchpubmed/internal/cache"
)

func newTestClient(opts Options) *Client {
	if opts.MinInterval == 0 {
		opts.MinInterval = time.Millisecond
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return New(opts)
}

func TestGetRetriesTransientStatuses(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer srv.Close()

	c := newTestClient(Options{MaxRetries: 3})
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 3, calls)
}

func TestGetPermanentFailureSurfacesImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(Options{MaxRetries: 3})
	_, err := c.Get(context.Background(), srv.URL)

	var perr *PermanentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.Status)
	assert.True(t, perr.NotFound())
	assert.Equal(t, 1, calls, "permanent failures must not be retried")
}

func TestGetExhaustedRetriesReportLastStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(Options{MaxRetries: 2})
	_, err := c.Get(context.Background(), srv.URL)

	var terr *TransientError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadGateway, terr.Status)
	assert.Equal(t, 3, terr.Attempts)
	assert.Equal(t, 3, calls)
}

func TestGetConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := newTestClient(Options{MaxRetries: 1})
	_, err := c.Get(context.Background(), srv.URL)

	var terr *TransientError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.Status)
	assert.Error(t, terr.Err)
}

func TestGetMinIntervalSpacesCallStarts(t *testing.T) {
	const interval = 40 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{MinInterval: interval, RetryDelay: time.Millisecond})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, srv.URL+"/"+string(rune('a'+i)))
		require.NoError(t, err)
	}

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// small fudge for scheduling jitter between gate release and dial
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
			"calls %d and %d started %v apart", i-1, i, gap)
	}
}

func TestGetConcurrentCallsSerializeThroughGate(t *testing.T) {
	const interval = 30 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(Options{MinInterval: interval, RetryDelay: time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Get(context.Background(), srv.URL+"/"+string(rune('a'+i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
	}
}

func TestGetUsesCache(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("cached"))
	}))
	defer srv.Close()

	c := newTestClient(Options{
		Cache:    cache.NewMemoryCache(time.Minute, time.Minute),
		CacheTTL: time.Minute,
	})

	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "cached", string(body))
	}
	assert.Equal(t, 1, calls)
}

func TestGetContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{MinInterval: time.Millisecond, RetryDelay: 5 * time.Second, MaxRetries: 3})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, srv.URL)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
