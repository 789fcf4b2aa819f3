package util

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/OHDSI/searchpubmed/internal/transport"
)

// Getter fetches a URL body. It is satisfied by the rate-limited transport
// client, so robots.txt fetches count against the same courtesy limit as
// every other outbound call.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// RobotsChecker answers whether a URL may be fetched according to the
// host's robots.txt. Rulesets are cached per host for the process
// lifetime. Fetch failures fail open: crawl etiquette should not turn a
// reachable page into an unreachable one.
type RobotsChecker struct {
	getter    Getter
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that fetches robots.txt through getter.
func NewRobotsChecker(getter Getter, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		getter:    getter,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// CanFetch reports whether rawURL is allowed for the configured agent.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true, nil
	}
	return data.TestAgent(parsed.Path, r.userAgent), nil
}

func (r *RobotsChecker) robotsData(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	host := parsed.Host

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, host)
	body, err := r.getter.Get(ctx, robotsURL)
	if err != nil {
		var perm *transport.PermanentError
		if errors.As(err, &perm) && perm.NotFound() {
			// a missing robots.txt allows everything
			data, _ = robotstxt.FromStatusAndBytes(404, nil)
		} else {
			return nil, err
		}
	} else {
		data, err = robotstxt.FromBytes(body)
		if err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()
	return data, nil
}
