package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/star/assetlist/internal/metrics"
)

// DefaultBaseURL is the upstream catalog API.
const DefaultBaseURL = "https://backend.digantara.dev/v1"

const satellitesPath = "/satellites"

// ErrUpstreamStatus is returned for any non-2xx upstream response.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// FetcherConfig controls how the upstream is contacted.
type FetcherConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxBodyBytes  int64
	Retries       uint64
	RetryInterval time.Duration
}

// Fetcher retrieves object records from the upstream catalog API.
type Fetcher struct {
	cfg        FetcherConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher. Zero config fields fall back to defaults.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &Fetcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// URL returns the full request URL for q.
func (f *Fetcher) URL(q Query) string {
	return f.cfg.BaseURL + satellitesPath + "?" + q.Values().Encode()
}

// Fetch performs the upstream request for q, retrying transient failures,
// and returns the decoded records.
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]ObjectRecord, error) {
	start := time.Now()

	// WithMaxRetries treats 0 as unlimited, so zero retries needs StopBackOff.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if f.cfg.Retries > 0 {
		b = backoff.WithMaxRetries(f.newBackOff(), f.cfg.Retries)
	}
	b = backoff.WithContext(b, ctx)

	attempt := 0
	body, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		attempt++
		data, err := f.get(ctx, q)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, b, func(err error, wait time.Duration) {
		f.logger.Warn("upstream fetch failed, retrying",
			"component", "fetcher",
			"attempt", attempt,
			"retry_in_ms", wait.Milliseconds(),
			"error", err,
		)
	})
	metrics.ObserveUpstreamDuration(time.Since(start))
	if err != nil {
		metrics.IncUpstreamRequests("error")
		return nil, err
	}

	records, err := ParseEnvelope(body, f.logger)
	if err != nil {
		metrics.IncUpstreamRequests("malformed")
		return nil, err
	}

	metrics.IncUpstreamRequests("success")
	metrics.SetUpstreamRecords(len(records))
	f.logger.Info("upstream fetch complete",
		"component", "fetcher",
		"object_types", strings.Join(q.ObjectTypes, ","),
		"records", len(records),
		"attempts", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records, nil
}

func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.RetryInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// get performs a single GET without retries.
func (f *Fetcher) get(ctx context.Context, q Query) ([]byte, error) {
	url := f.URL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d from %s", ErrUpstreamStatus, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, backoff.Permanent(fmt.Errorf("response exceeds %d byte limit", f.cfg.MaxBodyBytes))
	}

	return body, nil
}
