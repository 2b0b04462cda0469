package client

import (
	"context"
	"fmt"
	"iter"
	"net/url"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
	"github.com/robert-malhotra/copernicus-cli/pkg/query"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

// Search queries the catalogue-wide search endpoint. The collections filter
// is sent as a query term. No retry is attempted.
func (c *Client) Search(ctx context.Context, filter query.Filter, token *auth.Token) (*stac.FeatureCollection, error) {
	u, err := query.Apply(c.searchURL, filter, true)
	if err != nil {
		return nil, err
	}
	return c.getFeatures(ctx, u, token)
}

// List queries the items endpoint of one collection. The collection is part
// of the path, so filter.Collections is not sent.
func (c *Client) List(ctx context.Context, collectionID string, filter query.Filter, token *auth.Token) (*stac.FeatureCollection, error) {
	endpoint, err := query.WithCollection(c.listURL, collectionID)
	if err != nil {
		return nil, err
	}
	u, err := query.Apply(endpoint, filter, false)
	if err != nil {
		return nil, err
	}
	return c.getFeatures(ctx, u, token)
}

// NextPage follows the "next" link of a previous result. It returns nil and
// no error when there is no further page.
func (c *Client) NextPage(ctx context.Context, fc *stac.FeatureCollection, token *auth.Token) (*stac.FeatureCollection, error) {
	next, err := c.nextURL(fc)
	if err != nil || next == "" {
		return nil, err
	}
	return c.getFeatures(ctx, next, token)
}

// Pages yields first and then every page reached through "next" links.
// Iteration ends with ErrPaginationLoop when a link leads to a page that was
// already fetched, and stops at the first error or when the consumer returns
// false.
func (c *Client) Pages(ctx context.Context, first *stac.FeatureCollection, token *auth.Token) iter.Seq2[*stac.FeatureCollection, error] {
	return func(yield func(*stac.FeatureCollection, error) bool) {
		seen := map[string]bool{}
		if self := first.FindLink("self"); self != nil {
			if u, err := c.resolveLink(self.Href); err == nil {
				seen[u] = true
			}
		}

		for fc := first; fc != nil; {
			if !yield(fc, nil) {
				return
			}
			next, err := c.nextURL(fc)
			if err != nil {
				yield(nil, err)
				return
			}
			if next == "" {
				return
			}
			if seen[next] {
				yield(nil, fmt.Errorf("%w at %s", ErrPaginationLoop, next))
				return
			}
			seen[next] = true

			if fc, err = c.getFeatures(ctx, next, token); err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// nextURL returns the absolute URL of the page after fc, or "" when there is
// none.
func (c *Client) nextURL(fc *stac.FeatureCollection) (string, error) {
	if fc == nil {
		return "", nil
	}
	next, err := c.nextHandler(fc.Links)
	if err != nil || next == nil {
		return "", err
	}
	return c.resolveLink(next.String())
}

// resolveLink resolves href against the search endpoint.
func (c *Client) resolveLink(href string) (string, error) {
	base, err := url.Parse(c.searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint %q: %w", c.searchURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) getFeatures(ctx context.Context, rawURL string, token *auth.Token) (*stac.FeatureCollection, error) {
	body, err := c.fetch(ctx, rawURL, token)
	if err != nil {
		return nil, err
	}
	fc, err := stac.ParseFeatureCollection(body)
	if err != nil {
		return nil, &ResponseError{URL: rawURL, Status: 200, Body: body, Err: err}
	}
	c.logger.Debug("decoded feature collection", "features", len(fc.Features))
	return fc, nil
}
