package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"

	stac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
)

// GetCollection fetches a single collection document by ID.
func (c *Client) GetCollection(ctx context.Context, collectionID string, token *auth.Token) (*stac.Collection, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("collection ID cannot be empty")
	}
	base, err := url.Parse(c.collectionsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collections endpoint %q: %w", c.collectionsURL, err)
	}
	u := base.JoinPath(collectionID).String()

	body, err := c.fetch(ctx, u, token)
	if err != nil {
		return nil, err
	}
	var col stac.Collection
	if err := json.Unmarshal(body, &col); err != nil {
		return nil, &ResponseError{URL: u, Status: 200, Body: body, Err: err}
	}
	return &col, nil
}

// GetCollections iterates over every collection the catalogue exposes,
// following "next" links with the client's NextHandler. Iteration stops at
// the first error or when the consumer returns false.
func (c *Client) GetCollections(ctx context.Context, token *auth.Token) iter.Seq2[*stac.Collection, error] {
	return func(yield func(*stac.Collection, error) bool) {
		current, err := url.Parse(c.collectionsURL)
		if err != nil {
			yield(nil, fmt.Errorf("invalid collections endpoint %q: %w", c.collectionsURL, err))
			return
		}
		seen := map[string]bool{}

		for current != nil {
			u := current.String()
			if seen[u] {
				yield(nil, fmt.Errorf("%w at %s", ErrPaginationLoop, u))
				return
			}
			seen[u] = true

			body, err := c.fetch(ctx, u, token)
			if err != nil {
				yield(nil, err)
				return
			}
			var page struct {
				Collections []*stac.Collection `json:"collections"`
				Links       []*stac.Link       `json:"links"`
			}
			if err := json.Unmarshal(body, &page); err != nil {
				yield(nil, &ResponseError{URL: u, Status: 200, Body: body, Err: err})
				return
			}

			for _, col := range page.Collections {
				if !yield(col, nil) {
					return
				}
			}

			next, err := c.nextHandler(page.Links)
			if err != nil {
				yield(nil, err)
				return
			}
			if next == nil {
				return
			}
			current = current.ResolveReference(next)
		}
	}
}
