package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vbauerster/mpb/v8"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
	"github.com/robert-malhotra/copernicus-cli/pkg/downloader"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

func TestParseRewrite(t *testing.T) {
	rw, err := parseRewrite("catalogue=download")
	require.NoError(t, err)

	u, _ := url.Parse("https://catalogue.dataspace.copernicus.eu/odata/v1/Products(x)/$value")
	rw(u)
	assert.Equal(t, "download.dataspace.copernicus.eu", u.Host)

	for _, bad := range []string{"catalogue", "=download", "catalogue=", "a.b=c", "a=b:1"} {
		_, err := parseRewrite(bad)
		assert.Error(t, err, bad)
	}
}

func TestDescribeFailure(t *testing.T) {
	err := describeFailure("S2A", &downloader.WriteError{Path: "out/S2A.zip", BytesWritten: 2048, Err: io.ErrUnexpectedEOF})
	assert.ErrorContains(t, err, "partial file out/S2A.zip kept, 2.0 KiB written")
	assert.True(t, downloader.IsWriteFailed(err))

	err = describeFailure("S2A", &downloader.StatusError{Status: 403})
	assert.NotContains(t, err.Error(), "partial")
	var serr *downloader.StatusError
	assert.True(t, errors.As(err, &serr))
}

func testFeature(t *testing.T, id, href string) *stac.Feature {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"type":       "Feature",
		"id":         id,
		"properties": map[string]any{},
		"assets":     map[string]any{"PRODUCT": map[string]any{"href": href}},
	})
	require.NoError(t, err)
	var f stac.Feature
	require.NoError(t, json.Unmarshal(data, &f))
	return &f
}

func TestDownloadAllStopsAtFirstFailure(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, "archive")
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := &session{token: &auth.Token{AccessToken: "tok"}}
	d := downloader.New(downloader.WithRewrite(downloader.NoRewrite))

	err := downloadAll(context.Background(), d, s, []*stac.Feature{
		testFeature(t, "one", srv.URL+"/ok"),
		testFeature(t, "two", srv.URL+"/bad"),
		testFeature(t, "three", srv.URL+"/ok"),
	}, dir, false)

	var serr *downloader.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.Status)
	assert.Equal(t, []string{"/ok", "/bad"}, requests)

	data, readErr := os.ReadFile(filepath.Join(dir, "one.zip"))
	require.NoError(t, readErr)
	assert.Equal(t, "archive", string(data))
	_, statErr := os.Stat(filepath.Join(dir, "three.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewBarTracksProgress(t *testing.T) {
	bar, progress := newBar(nil, "S2A")
	assert.Nil(t, bar)
	assert.Nil(t, progress)

	p := mpb.New(mpb.WithOutput(io.Discard))
	bar, progress = newBar(p, "S2A")
	require.NotNil(t, bar)

	progress(0, 100)
	progress(40, 100)
	assert.Equal(t, int64(40), bar.Current())

	bar.SetTotal(-1, true)
	p.Wait()
	assert.True(t, bar.Completed())
}

func TestDownloadAllWithProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "archive")
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := &session{token: &auth.Token{AccessToken: "tok"}}
	d := downloader.New(downloader.WithRewrite(downloader.NoRewrite))

	err := downloadAll(context.Background(), d, s, []*stac.Feature{testFeature(t, "one", srv.URL+"/ok")}, dir, true)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "one.zip"))
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))
}
