package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

const (
	submitPath     = "/v1/documents"
	defaultBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client implements port.AuthorityClient over the authority's HTTP API.
type Client struct {
	baseURL    string
	token      string
	issuerRUC  string
	maxRetries int
	backoff    time.Duration
	client     *http.Client
	log        logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithBackoff sets the base delay between attempts. Attempt n waits n times
// the base unless the authority sends Retry-After.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates an authority client.
func NewClient(cfg *config.AuthorityConfig, issuerRUC string, log logrus.FieldLogger, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		issuerRUC:  issuerRUC,
		maxRetries: cfg.MaxRetries,
		backoff:    defaultBackoff,
		client:     &http.Client{Timeout: timeout},
		log:        log.WithField("component", "authority_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ port.AuthorityClient = (*Client)(nil)

// Submit posts the document. The authority deduplicates on the
// Idempotency-Key header and answers 409 for a key it already holds, which is
// treated as a successful acknowledgement.
func (c *Client) Submit(ctx context.Context, doc *domain.FiscalDocument, idempotencyKey string) (*port.SubmissionAck, error) {
	if doc.Number == nil {
		return nil, fmt.Errorf("submitting document %s: no number assigned", doc.ID)
	}
	body, err := json.Marshal(newSubmissionPayload(c.issuerRUC, doc))
	if err != nil {
		return nil, fmt.Errorf("marshaling submission: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			var ra *RetryAfterError
			if errors.As(lastErr, &ra) {
				wait = ra.RetryAfter
			}
			if wait > maxBackoff {
				wait = maxBackoff
			}
			c.log.WithFields(logrus.Fields{
				"document_id": doc.ID,
				"attempt":     attempt + 1,
				"wait":        wait,
			}).WithError(lastErr).Warn("retrying submission")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		ack, err := c.post(ctx, body, idempotencyKey)
		if err == nil {
			return ack, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("submitting document %s after %d attempts: %w", doc.ID, c.maxRetries+1, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte, idempotencyKey string) (*port.SubmissionAck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling authority API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated,
		resp.StatusCode == http.StatusAccepted, resp.StatusCode == http.StatusConflict:
		return parseAck(respBody)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
		baseErr := fmt.Errorf("authority API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
		return nil, &RetryAfterError{
			Err:        baseErr,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.backoff),
		}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("authority API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}
}

type ackBody struct {
	Ticket           string   `json:"ticket"`
	Outcome          string   `json:"outcome"`
	Hash             string   `json:"hash"`
	ConfirmationCode string   `json:"confirmation_code"`
	ResponseCode     string   `json:"response_code"`
	Description      string   `json:"description"`
	Observations     []string `json:"observations"`
}

func parseAck(body []byte) (*port.SubmissionAck, error) {
	var a ackBody
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("unmarshaling acknowledgement: %w", err)
		}
	}
	ack := &port.SubmissionAck{Ticket: a.Ticket}
	if a.Outcome != "" {
		ack.Resolution = &domain.AuthorityResponse{
			Ticket:           a.Ticket,
			Outcome:          domain.AuthorityOutcome(a.Outcome),
			Hash:             a.Hash,
			ConfirmationCode: a.ConfirmationCode,
			ResponseCode:     a.ResponseCode,
			Description:      a.Description,
			Observations:     a.Observations,
		}
	}
	return ack, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
