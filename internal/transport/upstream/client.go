// Package upstream fetches a day's records from the source CMS.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kailas-cloud/cmsdex/internal/domain/day"
	"github.com/kailas-cloud/cmsdex/internal/domain/record"
)

const recordsPath = "/records"

// ErrUpstream marks failures reported by the CMS itself.
var ErrUpstream = errors.New("upstream error")

// StatusError is a non-2xx answer from the CMS.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrUpstream.Error(), e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Temporary reports whether retrying the same request can succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// DecodeError is a payload the CMS sent but cmsdex cannot read.
type DecodeError struct {
	Day day.Day
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Day, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Temporary is always false: the same request returns the same payload.
func (e *DecodeError) Temporary() bool { return false }

// Client reads records over HTTP.
type Client struct {
	http *resty.Client
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// New creates a Client.
func New(opts Options) *Client {
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	return &Client{http: c}
}

// Fetch returns every record the CMS has for d.
// Malformed items fail the whole day so a retry sees the same input.
func (c *Client) Fetch(ctx context.Context, d day.Day) ([]record.Record, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("date", d.String()).
		Get(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", d, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, &DecodeError{Day: d, Err: err}
	}

	records := make([]record.Record, 0, len(items))
	for i, raw := range items {
		r, err := record.FromJSON(raw)
		if err != nil {
			return nil, &DecodeError{Day: d, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		records = append(records, r)
	}
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
