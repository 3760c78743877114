// Package fetch is the single chokepoint for outbound HTTP. Connect and
// total-transfer timeouts are configured here once, instead of ad hoc at
// each call site, and bounded retries exist only for idempotent metadata
// fetches.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
	"github.com/joshjhall/artifact-fetcher/internal/utils/logger"
)

// Options bounds every outbound call made through a Client.
type Options struct {
	// ConnectTimeout bounds TCP connect plus TLS handshake.
	ConnectTimeout time.Duration
	// TransferTimeout bounds the whole request, headers through body. A
	// stalled-but-connected transfer still terminates via this bound.
	TransferTimeout time.Duration
	// Retries is the number of additional attempts for GetWithRetry.
	Retries int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
}

// DefaultOptions mirror the timeouts the installer scripts historically
// spread across call sites, now in one place.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  10 * time.Second,
		TransferTimeout: 5 * time.Minute,
		Retries:         3,
		RetryBackoff:    2 * time.Second,
	}
}

// Client performs bounded HTTP GETs for checksum sources, version
// listings and artifact downloads.
type Client struct {
	http *http.Client
	opts Options
}

// NewClient builds a Client over a TLS-restricted transport.
func NewClient(opts Options) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,

		// CipherSuites applies only to TLS 1.0-1.2
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		},
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}

	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		ForceAttemptHTTP2:   true,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
	}

	return &Client{
		http: &http.Client{Transport: transport},
		opts: opts,
	}
}

// Get fetches a small body (a checksum document, a version listing) in
// one attempt. Transport errors and non-2xx statuses surface as
// UpstreamUnavailableError with a single attempt recorded.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, &fetcherrors.UpstreamUnavailableError{URL: url, Attempts: 1, Err: err}
	}
	return body, nil
}

// GetWithRetry fetches a small body with bounded retries and a fixed
// backoff. Intended for rate-limited release-hosting APIs; never used
// for the artifact download itself, and not for one-off vendor pages.
func (c *Client) GetWithRetry(ctx context.Context, url string) ([]byte, error) {
	log := logger.Logger()

	attempts := c.opts.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			log.Debugf("fetch %s attempt %d/%d failed: %v; retrying in %s",
				url, attempt, attempts, err, c.opts.RetryBackoff)
			select {
			case <-time.After(c.opts.RetryBackoff):
			case <-ctx.Done():
			}
		}
	}
	return nil, &fetcherrors.UpstreamUnavailableError{URL: url, Attempts: attempts, Err: lastErr}
}

// Stream opens the response body for an artifact download. The caller
// must Close the returned ReadCloser; closing also releases the
// transfer-timeout context. Never retried.
func (c *Client) Stream(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.TransferTimeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, 0, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, 0, &fetcherrors.DownloadFailedError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, 0, &fetcherrors.DownloadFailedError{URL: url, Status: resp.StatusCode}
	}

	return &cancelOnClose{rc: resp.Body, cancel: cancel}, resp.ContentLength, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.TransferTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// cancelOnClose ties the transfer-timeout context to the body's
// lifetime.
type cancelOnClose struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelOnClose) Close() error {
	err := c.rc.Close()
	c.cancel()
	return err
}
