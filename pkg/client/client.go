package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	stac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

const (
	// DefaultSearchURL is the catalogue-wide search endpoint.
	DefaultSearchURL = "https://catalogue.dataspace.copernicus.eu/stac/search"
	// DefaultListURL lists the items of one collection; see query.WithCollection.
	DefaultListURL = "https://catalogue.dataspace.copernicus.eu/stac/collections/{collection_id}/items"
	// DefaultCollectionsURL lists the available collections.
	DefaultCollectionsURL = "https://catalogue.dataspace.copernicus.eu/stac/collections"
)

// DefaultMaxBodySize caps how much of a catalogue response is read into
// memory.
const DefaultMaxBodySize = 64 << 20

// Middleware manipulates an outgoing *http.Request before it is executed.
type Middleware func(context.Context, *http.Request) error

// NextHandler determines the next-page URL from a list of STAC links.
// Return nil if there's no next page, or an error if parsing fails.
type NextHandler func([]*stac.Link) (*url.URL, error)

// ClientOption configures the Client.
type ClientOption func(*Client)

// Client issues authenticated requests against the catalogue.
type Client struct {
	httpClient     *http.Client
	searchURL      string
	listURL        string
	collectionsURL string
	nextHandler    NextHandler
	middleware     []Middleware
	maxBodySize    int64
	logger         *log.Logger
}

// -----------------------------------------------------------------------------
// Client options
// -----------------------------------------------------------------------------

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSearchURL overrides the search endpoint.
func WithSearchURL(u string) ClientOption {
	return func(c *Client) { c.searchURL = u }
}

// WithListURL overrides the collection-templated items endpoint.
func WithListURL(template string) ClientOption {
	return func(c *Client) { c.listURL = template }
}

// WithCollectionsURL overrides the collections endpoint.
func WithCollectionsURL(u string) ClientOption {
	return func(c *Client) { c.collectionsURL = u }
}

// WithNextHandler configures a custom NextHandler for pagination.
func WithNextHandler(h NextHandler) ClientOption {
	return func(c *Client) { c.nextHandler = h }
}

// WithMiddleware registers one or more request-middleware functions.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.middleware = append(c.middleware, mw...) }
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger registers a logger used for request lifecycle events.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a catalogue client for the default endpoints.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		searchURL:      DefaultSearchURL,
		listURL:        DefaultListURL,
		collectionsURL: DefaultCollectionsURL,
		nextHandler:    DefaultNextHandler,
		maxBodySize:    DefaultMaxBodySize,
		logger:         log.New(io.Discard),
	}
	for _, o := range opts {
		o(c)
	}
	for _, raw := range []string{c.searchURL, c.collectionsURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", raw, err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("invalid endpoint %q: not absolute", raw)
		}
	}
	return c, nil
}

// DefaultNextHandler looks for the first link with rel="next" and returns its
// Href parsed as a URL.
func DefaultNextHandler(links []*stac.Link) (*url.URL, error) {
	nl := findLinkByRel(links, "next")
	if nl == nil {
		return nil, nil // No "next" link found
	}

	if nl.Href == "" {
		return nil, fmt.Errorf("found 'next' link with empty Href")
	}

	parsedNextURL, err := url.Parse(nl.Href)
	if err != nil {
		return nil, fmt.Errorf("invalid 'next' link URL '%s': %w", nl.Href, err)
	}
	return parsedNextURL, nil
}

func findLinkByRel(links []*stac.Link, rel string) *stac.Link {
	for i := range links {
		if links[i] != nil && links[i].Rel == rel {
			return links[i]
		}
	}
	return nil
}

// bearer authorizes a single request with token.
func bearer(token *auth.Token) Middleware {
	return func(_ context.Context, r *http.Request) error {
		if token == nil || token.AccessToken == "" {
			return fmt.Errorf("no access token")
		}
		token.Authorize(r)
		return nil
	}
}

// -----------------------------------------------------------------------------
// doRequest / fetch: every outbound call funnels through here.
// -----------------------------------------------------------------------------

func (c *Client) doRequest(ctx context.Context, method, rawURL string, body io.Reader, extra ...Middleware) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")

	chain := make([]Middleware, 0, len(c.middleware)+len(extra))
	chain = append(append(chain, c.middleware...), extra...)
	for _, mw := range chain {
		if err := mw(ctx, req); err != nil {
			return nil, fmt.Errorf("error applying middleware for %s: %w", rawURL, err)
		}
	}

	c.logger.Debug("catalogue request", "method", method, "url", rawURL)
	return c.httpClient.Do(req)
}

// fetch performs an authenticated GET and returns the full body. Network and
// read failures are transport errors, a body over the size limit is
// ErrResponseTooLarge and a non-2xx answer is a *ResponseError carrying the
// body.
func (c *Client) fetch(ctx context.Context, rawURL string, token *auth.Token) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, rawURL, nil, bearer(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, rawURL, err)
	}
	if int64(len(body)) > c.maxBodySize {
		c.logger.Error("catalogue response too large", "url", rawURL, "limit", c.maxBodySize)
		return nil, fmt.Errorf("%w: %s exceeds %d bytes (status %d)", ErrResponseTooLarge, rawURL, c.maxBodySize, resp.StatusCode)
	}
	c.logger.Debug("catalogue response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("catalogue request failed", "status", resp.StatusCode, "url", rawURL)
		return nil, &ResponseError{
			URL:    rawURL,
			Status: resp.StatusCode,
			Body:   body,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return body, nil
}
