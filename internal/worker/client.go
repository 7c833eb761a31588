// Package worker dispatches enrichment jobs to the external workflow service.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/idtoken"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
)

// UserAgent identifies this service to the enrichment workflow.
const UserAgent = "SalesAdvisor/1.0"

// ErrRejected wraps non-success HTTP responses. Rejections are never retried.
var ErrRejected = errors.New("enrichment service rejected request")

// DispatchRequest is the job posted to the enrichment service.
type DispatchRequest struct {
	WebhookURL          string           `json:"webhookUrl"`
	ContactEmail        string           `json:"contactEmail"`
	LinkedInURL         string           `json:"linkedinUrl,omitempty"`
	Source              string           `json:"source"`
	ParticipantID       string           `json:"participantId,omitempty"`
	OrganizationID      string           `json:"organizationId"`
	UserID              string           `json:"userId"`
	EnrichmentHistoryID string           `json:"enrichmentHistoryId"`
	Metadata            DispatchMetadata `json:"metadata"`
}

// DispatchMetadata carries the caller's hints for the lookup.
type DispatchMetadata struct {
	FullName       string            `json:"fullName,omitempty"`
	CompanyName    string            `json:"companyName,omitempty"`
	AdditionalData map[string]string `json:"additionalData,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Dispatcher sends enrichment jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest, requestID string) error
}

// Client posts jobs with a per-attempt timeout and retries transient network failures.
type Client struct {
	client     *http.Client
	url        string
	timeout    time.Duration
	maxRetries int
	newBackOff func() backoff.BackOff
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithBackOff replaces the retry schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) {
		if fn != nil {
			c.newBackOff = fn
		}
	}
}

// NewClient builds a client for cfg.ServiceURL. With UseIDToken it authenticates with a
// Google ID token for the service URL, falling back to a plain client when no
// credentials are available.
func NewClient(ctx context.Context, cfg config.EnrichmentConfig, opts ...Option) (*Client, error) {
	target := strings.TrimSpace(cfg.ServiceURL)
	if target == "" {
		return nil, errors.New("enrichment service url must not be empty")
	}

	c := &Client{
		url:        target,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.client == nil {
		c.client = &http.Client{}
		if cfg.UseIDToken {
			if idc, err := idtoken.NewClient(ctx, target); err == nil {
				c.client = idc
			}
		}
	}
	return c, nil
}

// Dispatch posts req. Connection failures and timeouts are retried up to maxRetries
// times with exponential backoff; HTTP error responses fail immediately.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest, requestID string) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(retries)), ctx)

	return backoff.Retry(func() error {
		err := c.post(ctx, body, requestID)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (c *Client) post(ctx context.Context, body []byte, requestID string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, extractError(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func isTransient(err error) bool {
	if errors.Is(err, ErrRejected) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

func extractError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no response body"
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

var _ Dispatcher = (*Client)(nil)
