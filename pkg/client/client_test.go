package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	stac "github.com/planetlabs/go-stac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
	"github.com/robert-malhotra/copernicus-cli/pkg/query"
)

var testToken = &auth.Token{AccessToken: "tok", TokenType: "Bearer"}

const pageOne = `{
  "type": "FeatureCollection",
  "numberMatched": 2,
  "features": [{
    "type": "Feature",
    "id": "S2A_1",
    "bbox": [1, 2, 3, 4],
    "geometry": null,
    "properties": {"platformShortName": "SENTINEL-2", "cloudCover": 12.5},
    "assets": {"PRODUCT": {"href": "https://catalogue.example.eu/p/1"}}
  }],
  "links": [{"rel": "next", "href": "/stac/search?page=2"}]
}`

const pageTwo = `{
  "type": "FeatureCollection",
  "features": [{"type": "Feature", "id": "S2A_2", "properties": {}, "geometry": null}],
  "links": []
}`

func newTestClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithSearchURL(srv.URL + "/stac/search"),
		WithListURL(srv.URL + "/stac/collections/{collection_id}/items"),
		WithCollectionsURL(srv.URL + "/stac/collections"),
	}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsRelativeEndpoint(t *testing.T) {
	_, err := NewClient(WithSearchURL("/stac/search"))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stac/search", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(pageOne))
	}))
	defer srv.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limit := uint16(10)
	c := newTestClient(t, srv)

	fc, err := c.Search(context.Background(), query.Filter{
		Collections: "SENTINEL-2",
		BBox:        "1,2,3,4",
		From:        &from,
		Limit:       &limit,
	}, testToken)
	require.NoError(t, err)

	assert.Equal(t, "bbox=1,2,3,4&datetime=2024-01-01T00:00:00Z/&limit=10&collections=SENTINEL-2", rawQuery)
	require.Len(t, fc.Features, 1)
	id, ok := fc.Features[0].DisplayID()
	assert.True(t, ok)
	assert.Equal(t, "S2A_1", id)
	href, ok := fc.Features[0].ProductHref()
	assert.True(t, ok)
	assert.Equal(t, "https://catalogue.example.eu/p/1", href)
	require.NotNil(t, fc.NumberMatched)
	assert.Equal(t, 2, *fc.NumberMatched)
}

func TestSearchWithoutFilterSendsNoQuery(t *testing.T) {
	var requestURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestURI = r.RequestURI
		w.Write([]byte(pageTwo))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)
	assert.Equal(t, "/stac/search", requestURI)
}

func TestList(t *testing.T) {
	var path, rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, rawQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(pageTwo))
	}))
	defer srv.Close()

	limit := uint16(5)
	fc, err := newTestClient(t, srv).List(context.Background(), "SENTINEL-1", query.Filter{
		Collections: "ignored",
		Limit:       &limit,
	}, testToken)
	require.NoError(t, err)

	assert.Equal(t, "/stac/collections/SENTINEL-1/items", path)
	assert.Equal(t, "limit=5", rawQuery)
	assert.Len(t, fc.Features, 1)
}

func TestListRequiresCollection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(t, srv).List(context.Background(), "", query.Filter{}, testToken)
	assert.ErrorIs(t, err, query.ErrTemplate)
}

func TestNextPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(pageTwo))
			return
		}
		w.Write([]byte(pageOne))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	first, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)

	second, err := c.NextPage(context.Background(), first, testToken)
	require.NoError(t, err)
	require.NotNil(t, second)
	id, _ := second.Features[0].DisplayID()
	assert.Equal(t, "S2A_2", id)

	third, err := c.NextPage(context.Background(), second, testToken)
	require.NoError(t, err)
	assert.Nil(t, third)
}

func TestSearchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"bad bbox"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), query.Filter{BBox: "x"}, testToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	var rerr *ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Contains(t, string(rerr.Body), "bad bbox")
}

func TestSearchMalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":          `<html>maintenance</html>`,
		"features missing":  `{"type":"FeatureCollection"}`,
		"wrong type":        `{"type":"Feature","features":[]}`,
		"features not list": `{"type":"FeatureCollection","features":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Search(context.Background(), query.Filter{}, testToken)
			var rerr *ResponseError
			require.ErrorAs(t, err, &rerr)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			assert.Equal(t, body, string(rerr.Body))
		})
	}
}

func TestSearchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestSearchRequiresToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Search(context.Background(), query.Filter{}, nil)
	assert.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestMiddleware(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "copernicus-cli", r.Header.Get("User-Agent"))
		w.Write([]byte(pageTwo))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMiddleware(func(_ context.Context, r *http.Request) error {
		r.Header.Set("User-Agent", "copernicus-cli")
		return nil
	}))
	_, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)
}

func TestGetCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/stac/collections" && r.URL.Query().Get("page") == "":
			w.Write([]byte(`{"collections":[
				{"type":"Collection","stac_version":"1.0.0","id":"SENTINEL-1","title":"Sentinel 1","description":"SAR","license":"proprietary","extent":{"spatial":{"bbox":[[-180,-90,180,90]]},"temporal":{"interval":[[null,null]]}},"links":[]}
			],"links":[{"rel":"next","href":"collections?page=2"}]}`))
		case r.URL.Query().Get("page") == "2":
			w.Write([]byte(`{"collections":[
				{"type":"Collection","stac_version":"1.0.0","id":"SENTINEL-2","description":"MSI","license":"proprietary","extent":{"spatial":{"bbox":[[-180,-90,180,90]]},"temporal":{"interval":[[null,null]]}},"links":[]}
			],"links":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var ids []string
	for col, err := range newTestClient(t, srv).GetCollections(context.Background(), testToken) {
		require.NoError(t, err)
		ids = append(ids, col.Id)
	}
	assert.Equal(t, []string{"SENTINEL-1", "SENTINEL-2"}, ids)
}

func TestGetCollectionsPaginationLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"collections":[],"links":[{"rel":"next","href":"collections"}]}`))
	}))
	defer srv.Close()

	var lastErr error
	for _, err := range newTestClient(t, srv).GetCollections(context.Background(), testToken) {
		lastErr = err
	}
	require.Error(t, lastErr)
	assert.True(t, errors.Is(lastErr, ErrPaginationLoop))
}

func TestGetCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stac/collections/SENTINEL-3", r.URL.Path)
		w.Write([]byte(`{"type":"Collection","stac_version":"1.0.0","id":"SENTINEL-3","description":"OLCI","license":"proprietary","extent":{"spatial":{"bbox":[[-180,-90,180,90]]},"temporal":{"interval":[[null,null]]}},"links":[]}`))
	}))
	defer srv.Close()

	col, err := newTestClient(t, srv).GetCollection(context.Background(), "SENTINEL-3", testToken)
	require.NoError(t, err)
	assert.Equal(t, "SENTINEL-3", col.Id)
}

func TestDefaultNextHandler(t *testing.T) {
	u, err := DefaultNextHandler([]*stac.Link{{Rel: "self", Href: "/a"}, {Rel: "next", Href: "/b?page=2"}})
	require.NoError(t, err)
	assert.Equal(t, "/b?page=2", u.String())

	u, err = DefaultNextHandler(nil)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = DefaultNextHandler([]*stac.Link{{Rel: "next"}})
	assert.Error(t, err)
}

func TestResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageOne))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxBodySize(32))
	_, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResponseTooLarge))
	assert.False(t, errors.Is(err, ErrMalformedResponse))

	c = newTestClient(t, srv, WithMaxBodySize(int64(len(pageOne))))
	fc, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)
}

func TestPagesFollowsNextLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(pageTwo))
			return
		}
		w.Write([]byte(pageOne))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	first, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)

	var ids []string
	for fc, err := range c.Pages(context.Background(), first, testToken) {
		require.NoError(t, err)
		for _, f := range fc.Features {
			id, _ := f.DisplayID()
			ids = append(ids, id)
		}
	}
	assert.Equal(t, []string{"S2A_1", "S2A_2"}, ids)
}

func TestPagesStopsWhenNextLinkLoops(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"type":"FeatureCollection","features":[],"links":[{"rel":"next","href":"/stac/search"}]}`))
			return
		}
		w.Write([]byte(`{"type":"FeatureCollection","features":[],"links":[` +
			`{"rel":"self","href":"/stac/search"},{"rel":"next","href":"/stac/search?page=2"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	first, err := c.Search(context.Background(), query.Filter{}, testToken)
	require.NoError(t, err)

	pages := 0
	var lastErr error
	for fc, err := range c.Pages(context.Background(), first, testToken) {
		if err != nil {
			lastErr = err
			continue
		}
		require.NotNil(t, fc)
		pages++
	}
	require.Error(t, lastErr)
	assert.True(t, errors.Is(lastErr, ErrPaginationLoop))
	assert.Equal(t, 2, pages)
	assert.Equal(t, int32(2), requests.Load())
}
