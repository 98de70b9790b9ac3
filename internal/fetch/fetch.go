// Package fetch implements the Fetcher (spec §4.1): HTTP(S) access to a
// repository coordinate, with bounded retries, per-host and overall
// concurrency limits, and per-host rate limiting.
//
// Adapted from the teacher's Downloader.open/tempFileWithFilename
// (downloader.go): the retry-on-transient-error shape is the same, but
// concurrency is now bounded with golang.org/x/sync/semaphore instead of
// the teacher's channel-based pool, and pacing is added via
// golang.org/x/time/rate (SPEC_FULL.md §4.1).
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
)

const (
	minAttempts       = 3
	initialBackoff    = 250 * time.Millisecond
	maxBackoff        = 5 * time.Second
	defaultPerHost    = 4
	defaultOverall    = 16
	defaultRatePerSec = 20 // requests/sec per host, generous enough not to throttle a healthy mirror
)

// Coordinate names one repository root a Fetch/FetchStream call reaches
// into; RelativePath is resolved against it after normalization.
type Coordinate struct {
	BaseURL string
}

// Config tunes a Fetcher's concurrency and rate limiting. Zero values
// are replaced with the defaults named in SPEC_FULL.md §4.1.
type Config struct {
	MaxConcurrentPerHost int
	MaxConcurrentTotal   int
	Timeout              time.Duration
}

// Fetcher performs bounded, retrying HTTP(S) fetches against repository
// coordinates. It is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	overall *semaphore.Weighted
	perHost int

	mu        sync.Mutex
	hostSems  map[string]*semaphore.Weighted
	hostRates map[string]*rate.Limiter
}

// New constructs a Fetcher. HTTP(S)_PROXY/NO_PROXY are honored via the
// standard library's http.ProxyFromEnvironment, the one corner of this
// package that stays on stdlib (see DESIGN.md).
func New(cfg Config) *Fetcher {
	perHost := cfg.MaxConcurrentPerHost
	if perHost <= 0 {
		perHost = defaultPerHost
	}
	overall := cfg.MaxConcurrentTotal
	if overall <= 0 {
		overall = defaultOverall
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
		overall:   semaphore.NewWeighted(int64(overall)),
		perHost:   perHost,
		hostSems:  map[string]*semaphore.Weighted{},
		hostRates: map[string]*rate.Limiter{},
	}
}

// transientError marks an error as retryable (transport failure, 5xx).
type transientError struct{ err error }

func (t transientError) Error() string { return t.err.Error() }
func (t transientError) Unwrap() error { return t.err }

// Fetch retrieves relativePath under coord's base URL in full, retrying
// transient failures with bounded exponential backoff.
func (f *Fetcher) Fetch(ctx context.Context, coord Coordinate, relativePath string) ([]byte, error) {
	rc, err := f.FetchStream(ctx, coord, relativePath, -1, "")
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FetchStream retrieves relativePath under coord's base URL as a stream.
// expectedSize < 0 means unknown; expectedHash == "" means the caller
// will verify separately (or not at all). Neither is checked or otherwise
// used here — this layer is the transport, not the integrity check, which
// lives in the Downloader (G) that wraps it.
func (f *Fetcher) FetchStream(ctx context.Context, coord Coordinate, relativePath string, expectedSize int64, expectedHash string) (io.ReadCloser, error) {
	target, host, err := resolveURL(coord, relativePath)
	if err != nil {
		return nil, aptpkgerrors.NewFetchError(target, err)
	}

	if err := f.overall.Acquire(ctx, 1); err != nil {
		return nil, aptpkgerrors.NewFetchError(target, err)
	}
	defer f.overall.Release(1)

	hostSem, limiter := f.hostLimiter(host)
	if err := hostSem.Acquire(ctx, 1); err != nil {
		return nil, aptpkgerrors.NewFetchError(target, err)
	}
	defer hostSem.Release(1)

	if err := limiter.Wait(ctx); err != nil {
		return nil, aptpkgerrors.NewFetchError(target, err)
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < minAttempts; attempt++ {
		body, err := f.attempt(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, aptpkgerrors.NewFetchError(target, err)
		}
		select {
		case <-ctx.Done():
			return nil, aptpkgerrors.NewFetchError(target, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil, aptpkgerrors.NewFetchError(target, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transientError{err}
	}
	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}
	resp.Body.Close()
	err = fmt.Errorf("unexpected status %d for %s", resp.StatusCode, target)
	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		return nil, transientError{err}
	}
	return nil, err
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var te transientError
	return errorsAs(err, &te)
}

// errorsAs walks err's Unwrap chain and reports whether any link is a
// transientError, storing it in target; kept local and tiny since it only
// ever looks for that one type.
func errorsAs(err error, target *transientError) bool {
	for err != nil {
		if te, ok := err.(transientError); ok {
			*target = te
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (f *Fetcher) hostLimiter(host string) (*semaphore.Weighted, *rate.Limiter) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sem, ok := f.hostSems[host]
	if !ok {
		sem = semaphore.NewWeighted(int64(f.perHost))
		f.hostSems[host] = sem
	}
	limiter, ok := f.hostRates[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultRatePerSec)
		f.hostRates[host] = limiter
	}
	return sem, limiter
}

// resolveURL normalizes coord.BaseURL + relativePath, stripping any
// query/fragment and a trailing slash from the base URL. The rest of the
// base path is kept as configured: path segments past the repository
// root (e.g. a trailing "dists/<dist>") are not detected or removed.
func resolveURL(coord Coordinate, relativePath string) (string, string, error) {
	base, err := url.Parse(coord.BaseURL)
	if err != nil {
		return "", "", err
	}
	base.RawQuery = ""
	base.Fragment = ""
	base.Path = strings.TrimSuffix(base.Path, "/")

	joined := *base
	joined.Path = base.Path + "/" + strings.TrimPrefix(relativePath, "/")
	return joined.String(), base.Host, nil
}
