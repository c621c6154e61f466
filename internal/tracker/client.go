// Package tracker talks to a Jira-compatible issue tracker and fans out the
// per-issue work-log requests.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/paycheck/internal/errors"
	"github.com/rohankatakam/paycheck/internal/worklog"
)

// Endpoint labels used for logging and metrics
const (
	EndpointSearch  = "search"
	EndpointWorklog = "worklog"
)

// DefaultMaxResults is the effectively unbounded search cap
const DefaultMaxResults = 1000000

// Observer receives one call per HTTP attempt
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// Options configures a Client
type Options struct {
	// BaseURL is scheme://host[:port], optionally with a context path
	BaseURL    string
	APIVersion string

	// Token takes precedence over Username/Password
	Token    string
	Username string
	Password string

	HTTPClient  *http.Client
	MaxAttempts int
	Backoff     time.Duration
	Observer    Observer
	Logger      *slog.Logger
}

// Client is a minimal read-only tracker REST client
type Client struct {
	baseURL     string
	apiVersion  string
	token       string
	username    string
	password    string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	observer    Observer
	logger      *slog.Logger
}

// NewClient creates a tracker client
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, errors.ConfigErrorf("invalid tracker base URL %q", opts.BaseURL)
	}

	c := &Client{
		baseURL:     base,
		apiVersion:  opts.APIVersion,
		token:       opts.Token,
		username:    opts.Username,
		password:    opts.Password,
		http:        opts.HTTPClient,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		observer:    opts.Observer,
		logger:      opts.Logger,
	}
	if c.apiVersion == "" {
		c.apiVersion = "2"
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.backoff <= 0 {
		c.backoff = 300 * time.Millisecond
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "tracker")
	}
	return c, nil
}

// BaseURL builds scheme://host:port. A zero port leaves the scheme default.
func BaseURL(scheme, host string, port int) string {
	if scheme == "" {
		scheme = "https"
	}
	if port == 0 {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + strconv.Itoa(port)
}

// BuildJQL returns the filter for issues with time logged on or after since
func BuildJQL(since time.Time) string {
	return fmt.Sprintf("timespent > 0 and worklogDate >= '%s'", since.Format("2006-01-02"))
}

// Search returns the issues matching jql, following startAt pagination until
// maxResults issues are collected or the tracker runs out.
func (c *Client) Search(ctx context.Context, jql string, fields []string, maxResults int) ([]worklog.IssueRef, error) {
	path := c.apiPath("search")
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	var refs []worklog.IssueRef

	for {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(len(refs)))
		q.Set("fields", strings.Join(fields, ","))
		q.Set("maxResults", strconv.Itoa(maxResults-len(refs)))
		q.Set("jql", jql)

		var page searchResponse
		if err := c.getJSON(ctx, EndpointSearch, path, q, &page); err != nil {
			return nil, err
		}

		for _, entry := range page.Issues {
			if entry.Key == "" {
				return nil, errors.ParseErrorf(nil, "search result entry %q has no key", entry.ID).
					WithContext("endpoint", path)
			}
			refs = append(refs, entry.ref())
		}

		if len(page.Issues) == 0 || len(refs) >= page.Total || len(refs) >= maxResults {
			break
		}
		c.logger.Debug("search page", "received", len(refs), "total", page.Total)
	}

	return refs, nil
}

// Worklogs returns every work log recorded on issueKey
func (c *Client) Worklogs(ctx context.Context, issueKey string) ([]worklog.Record, error) {
	path := c.apiPath("issue/" + url.PathEscape(issueKey) + "/worklog")
	var records []worklog.Record

	for {
		q := url.Values{}
		if len(records) > 0 {
			q.Set("startAt", strconv.Itoa(len(records)))
		}

		var page worklogResponse
		if err := c.getJSON(ctx, EndpointWorklog, path, q, &page); err != nil {
			return nil, err.WithContext("issue", issueKey)
		}
		if page.Worklogs == nil {
			return nil, errors.ParseErrorf(nil, "worklog response has no worklogs field").
				WithContext("issue", issueKey).
				WithContext("endpoint", path)
		}

		for _, item := range *page.Worklogs {
			rec, missing := item.record()
			if missing != "" {
				return nil, errors.ParseErrorf(nil, "worklog %q: missing or invalid %s", item.ID, missing).
					WithContext("issue", issueKey).
					WithContext("endpoint", path)
			}
			records = append(records, rec)
		}

		if len(*page.Worklogs) == 0 || len(records) >= page.Total {
			break
		}
	}

	return records, nil
}

func (c *Client) apiPath(rest string) string {
	return "/rest/api/" + c.apiVersion + "/" + rest
}

// getJSON performs a GET and decodes the body into out. 429 and 5xx answers
// and transport errors are retried with exponential backoff.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, out any) *errors.Error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var lastErr *errors.Error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying tracker request", "endpoint", path, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return errors.NetworkError(ctx.Err(), "tracker request cancelled").WithContext("endpoint", path)
			case <-time.After(wait):
			}
		}

		retry, err := c.do(ctx, endpoint, path, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, endpoint, path, u string, out any) (retry bool, _ *errors.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityCritical, "build tracker request").
			WithContext("endpoint", path)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "error", start)
		return true, errors.NetworkError(err, "tracker request failed").WithContext("endpoint", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(endpoint, strconv.Itoa(resp.StatusCode), start)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retry = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, errors.NetworkErrorf(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"tracker answered %s", resp.Status).
			WithContext("endpoint", path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observe(endpoint, "malformed", start)
		return false, errors.ParseError(err, "decode tracker response").WithContext("endpoint", path)
	}
	c.observe(endpoint, "ok", start)
	return false, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, outcome, time.Since(start))
	}
}
