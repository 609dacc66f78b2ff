// Package http builds pre-configured *http.Client instances for the
// triage pipeline's outbound callers (Slack webhooks, the model API), so
// timeout and connection-pool tuning lives in one place instead of being
// repeated at every call site.
package http

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ClientConfig tunes the transport and timeout of a constructed client.
type ClientConfig struct {
	Timeout                 time.Duration
	MaxRetries              int
	DisableSSLVerification  bool
	MaxIdleConns            int
	IdleConnTimeout         time.Duration
	TLSHandshakeTimeout     time.Duration
	ResponseHeaderTimeout   time.Duration
}

// DefaultClientConfig returns sane defaults for a general-purpose outbound
// HTTP client.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:               30 * time.Second,
		MaxRetries:            3,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
}

// NewClient builds an *http.Client from the given config. A positive
// MaxRetries wraps the transport so a request failing with a transport
// error or a 5xx response is retried with exponential backoff, up to
// MaxRetries additional attempts beyond the first.
func NewClient(config ClientConfig) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}
	if config.DisableSSLVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	var rt http.RoundTripper = transport
	if config.MaxRetries > 0 {
		rt = &retryTransport{base: transport, maxRetries: config.MaxRetries}
	}
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: rt,
	}
}

// retryTransport retries a request that fails with a transport error or a
// 5xx response, using exponential backoff. A request whose body can't be
// replayed (no GetBody, e.g. a caller passed a one-shot io.Reader) is sent
// once with no retry, since the body has already been consumed after the
// first attempt.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	resp, err := backoff.Retry(req.Context(), func() (*http.Response, error) {
		attemptReq := req
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, backoff.Permanent(bodyErr)
			}
			clone := req.Clone(req.Context())
			clone.Body = body
			attemptReq = clone
		}

		resp, rtErr := t.base.RoundTrip(attemptReq)
		if rtErr != nil {
			return nil, rtErr
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("server error: %s", resp.Status)
		}
		return resp, nil
	}, backoff.WithMaxTries(uint(t.maxRetries)+1))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// NewClientWithTimeout builds a client with the default config except for
// the given timeout.
func NewClientWithTimeout(timeout time.Duration) *http.Client {
	config := DefaultClientConfig()
	config.Timeout = timeout
	return NewClient(config)
}

// NewDefaultClient builds a client using DefaultClientConfig().
func NewDefaultClient() *http.Client {
	return NewClient(DefaultClientConfig())
}

// SlackClientConfig tunes a client for posting to Slack incoming webhooks:
// short timeout, few retries, so a flaky webhook never backs up the alert
// path — delivery here is best-effort and must not block ticket processing.
func SlackClientConfig() ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = 5 * time.Second
	config.MaxRetries = 2
	return config
}

// PrometheusClientConfig tunes a client for scraping/pushing metrics at the
// given overall timeout, with a response-header timeout at half that.
func PrometheusClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 2
	return config
}

// LLMClientConfig tunes a client for a model API call at the given overall
// timeout, with a response-header timeout at a third of that (model APIs
// stream headers late relative to simple REST calls).
func LLMClientConfig(timeout time.Duration) ClientConfig {
	config := DefaultClientConfig()
	config.Timeout = timeout
	config.ResponseHeaderTimeout = timeout / 3
	return config
}
