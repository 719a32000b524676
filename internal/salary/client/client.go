// Package client is a typed client for the admin REST API. It satisfies
// moderation.Remote, so the moderation workflow can drive a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures the client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// MaxRetries bounds the extra attempts made for idempotent reads.
	MaxRetries    uint64
	RetryInterval time.Duration
	HTTPClient    *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 200 * time.Millisecond
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

type Client struct {
	baseURL       *url.URL
	inner         *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

// New creates a Client for the API rooted at opts.BaseURL.
func New(opts Options, logger *zap.Logger) (*Client, error) {
	opts = opts.withDefaults()

	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base URL %q needs a scheme and host", opts.BaseURL)
	}

	return &Client{
		baseURL:       base,
		inner:         opts.HTTPClient,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		logger:        logger.Named("salary_client"),
	}, nil
}

// response mirrors the server envelope; data is decoded per call.
type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

func (c *Client) ListPending(ctx context.Context, token string) ([]*models.SalaryRecord, error) {
	var out []*models.SalaryRecord
	err := c.call(ctx, "list pending", token, http.MethodGet, "/admin/pending", nil, nil, &out)
	return out, err
}

func (c *Client) ListRejected(ctx context.Context, token string) ([]*models.SalaryRecord, error) {
	var out []*models.SalaryRecord
	err := c.call(ctx, "list rejected", token, http.MethodGet, "/admin/rejected", nil, nil, &out)
	return out, err
}

// ListSalaries lists approved records; an empty kind returns every kind.
func (c *Client) ListSalaries(ctx context.Context, token string, kind models.Kind) ([]*models.SalaryRecord, error) {
	var query url.Values
	if kind != "" {
		query = url.Values{"type": {string(kind)}}
	}
	var out []*models.SalaryRecord
	err := c.call(ctx, "list salaries", token, http.MethodGet, "/admin/salaries", query, nil, &out)
	return out, err
}

func (c *Client) GetSalary(ctx context.Context, token string, id uuid.UUID) (*models.SalaryRecord, error) {
	var out models.SalaryRecord
	if err := c.call(ctx, "get salary", token, http.MethodGet, "/admin/salaries/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Approve(ctx context.Context, token string, id uuid.UUID) error {
	return c.call(ctx, "approve", token, http.MethodPatch, "/admin/"+id.String()+"/approve", nil, nil, nil)
}

func (c *Client) Reject(ctx context.Context, token string, id uuid.UUID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.call(ctx, "reject", token, http.MethodPatch, "/admin/"+id.String()+"/reject", nil, body, nil)
}

func (c *Client) Restore(ctx context.Context, token string, id uuid.UUID) error {
	return c.call(ctx, "restore", token, http.MethodPatch, "/admin/"+id.String()+"/restore", nil, nil, nil)
}

func (c *Client) CreateSalary(ctx context.Context, token string, rec *models.SalaryRecord) (*models.SalaryRecord, error) {
	var out models.SalaryRecord
	if err := c.call(ctx, "create salary", token, http.MethodPost, "/admin/create-salary", nil, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSalary sends rec's editable fields for the record with rec.ID.
func (c *Client) UpdateSalary(ctx context.Context, token string, rec *models.SalaryRecord) (*models.SalaryRecord, error) {
	var out models.SalaryRecord
	if err := c.call(ctx, "update salary", token, http.MethodPut, "/admin/salaries/"+rec.ID.String(), nil, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSalary(ctx context.Context, token string, id uuid.UUID) error {
	return c.call(ctx, "delete salary", token, http.MethodDelete, "/admin/salaries/"+id.String(), nil, nil, nil)
}

func (c *Client) Insights(ctx context.Context, token string, cr insights.Criteria) (insights.Summary, error) {
	var out insights.Summary
	err := c.call(ctx, "insights", token, http.MethodGet, "/admin/insights", criteriaQuery(cr), nil, &out)
	return out, err
}

// ExportCSV streams the filtered approved salaries as CSV into w.
func (c *Client) ExportCSV(ctx context.Context, token string, cr insights.Criteria, w io.Writer) error {
	const op = "export"
	if token == "" {
		return fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}
	req, err := c.newRequest(ctx, token, http.MethodGet, "/admin/salaries/export", criteriaQuery(cr), nil)
	if err != nil {
		return err
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return &e.RemoteFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return classify(op, resp.StatusCode, raw)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &e.RemoteFailure{Op: op, Err: err}
	}
	return nil
}

// call performs one API request. An empty token fails before any I/O. GETs
// are retried on transport errors and 5xx answers; nothing else is.
func (c *Client) call(
	ctx context.Context,
	op, token, method, path string,
	query url.Values,
	body interface{},
	out interface{},
) error {
	if token == "" {
		return fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	attempt := func() error {
		req, err := c.newRequest(ctx, token, method, path, query, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.inner.Do(req)
		if err != nil {
			return &e.RemoteFailure{Op: op, Err: err}
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &e.RemoteFailure{Op: op, Status: resp.StatusCode, Err: err}
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return classify(op, resp.StatusCode, raw)
		}
		return backoff.Permanent(decode(op, resp.StatusCode, raw, out))
	}

	retries := uint64(0)
	if method == http.MethodGet {
		retries = c.maxRetries
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	return backoff.RetryNotify(attempt,
		backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx),
		func(err error, wait time.Duration) {
			c.logger.Warn("Retrying request",
				zap.String("op", op),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		})
}

func (c *Client) newRequest(
	ctx context.Context,
	token, method, path string,
	query url.Values,
	payload []byte,
) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// decode returns nil only for a success envelope, after filling out.
func decode(op string, status int, raw []byte, out interface{}) error {
	if status >= http.StatusBadRequest {
		return classify(op, status, raw)
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &e.RemoteFailure{Op: op, Status: status, Message: "malformed response", Err: err}
	}
	if !resp.Success {
		return &e.RemoteFailure{Op: op, Status: status, Message: resp.Message}
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &e.RemoteFailure{Op: op, Status: status, Message: "malformed data", Err: err}
	}
	return nil
}

// classify turns an error status into the matching domain error.
func classify(op string, status int, raw []byte) error {
	var resp response
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &resp) == nil && resp.Message != "" {
		msg = resp.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, e.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, e.ErrNotFound, msg)
	case http.StatusConflict:
		if resp.Code == "invalid_transition" {
			return fmt.Errorf("%s: %w: %s", op, e.ErrInvalidTransition, msg)
		}
		return fmt.Errorf("%s: %w: %s", op, e.ErrConflict, msg)
	case http.StatusBadRequest:
		return &e.ValidationError{Msg: msg}
	default:
		return &e.RemoteFailure{Op: op, Status: status, Message: msg}
	}
}

func criteriaQuery(c insights.Criteria) url.Values {
	q := url.Values{}
	set := func(key, val string) {
		if val != "" {
			q.Set(key, val)
		}
	}
	set("search", c.Search)
	set("location", c.Location)
	set("experience", string(c.ExperienceRange))
	set("level", c.Level)
	set("type", string(c.Kind))
	return q
}
