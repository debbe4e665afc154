package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"buildcost/internal/logging"
)

// maxDocumentBytes bounds a single pricing document
const maxDocumentBytes = 8 << 20

// HTTPOptions configures an HTTPFetcher
type HTTPOptions struct {
	Timeout    time.Duration
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Client     *http.Client
}

// HTTPFetcher downloads pricing documents relative to a base URL.
// Transport errors and 5xx responses are retried with exponential backoff;
// 4xx responses fail immediately.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	opts    HTTPOptions
	logger  *zap.Logger
}

// NewHTTPFetcher creates a fetcher for baseURL
func NewHTTPFetcher(baseURL string, opts HTTPOptions, logger *zap.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		opts:    opts,
		logger:  logging.Component(logger, "fetch"),
	}
}

// FetchCatalog implements pricing.Fetcher
func (f *HTTPFetcher) FetchCatalog(ctx context.Context) ([]byte, error) {
	return f.get(ctx, CatalogPath)
}

// FetchFactors implements pricing.Fetcher
func (f *HTTPFetcher) FetchFactors(ctx context.Context, region string) ([]byte, error) {
	name, err := RegionPath(region)
	if err != nil {
		return nil, err
	}
	return f.get(ctx, name)
}

func (f *HTTPFetcher) backoff() retry.Backoff {
	b := retry.NewExponential(f.opts.BaseDelay)
	b = retry.WithCappedDuration(f.opts.MaxDelay, b)
	return retry.WithMaxRetries(f.opts.MaxRetries, b)
}

func (f *HTTPFetcher) get(ctx context.Context, name string) ([]byte, error) {
	url := f.baseURL + "/" + name
	attempt := 0

	var body []byte
	err := retry.Do(ctx, f.backoff(), func(ctx context.Context) error {
		attempt++
		data, err := f.once(ctx, url)
		if err == nil {
			body = data
			return nil
		}
		var status *statusError
		if errors.As(err, &status) && status.code < 500 {
			return err
		}
		f.logger.Warn("pricing fetch failed, retrying", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetched pricing document", zap.String("url", url), zap.Int("bytes", len(body)), zap.Int("attempts", attempt))
	return body, nil
}

func (f *HTTPFetcher) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{url: url, code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.url, e.code, http.StatusText(e.code))
}
