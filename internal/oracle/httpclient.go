package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const defaultMaxTries = 3

// httpStatusError is returned for non-2xx upstream responses.
type httpStatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.URL, e.Status, e.Body)
}

// jsonClient performs throttled, retried GET requests against a JSON API.
type jsonClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	maxTries uint
}

// newJSONClient builds a client. ratePerMinute <= 0 disables throttling.
func newJSONClient(baseURL string, timeout time.Duration, ratePerMinute int) *jsonClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &jsonClient{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		maxTries: defaultMaxTries,
	}
	if ratePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 1)
	}
	return c
}

// getJSON issues GET baseURL+path?query and decodes the body into out.
// 429 and 5xx responses are retried with exponential backoff; other 4xx
// responses fail immediately.
func (c *jsonClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	op := func() (struct{}, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			statusErr := &httpStatusError{URL: path, Status: resp.StatusCode, Body: string(body)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return struct{}{}, statusErr
			}
			return struct{}{}, backoff.Permanent(statusErr)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return struct{}{}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	_, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
	return err
}
