// Package downloader streams product archives referenced by catalogue
// features to disk.
//
// A failed copy leaves the partial file in place; the returned *WriteError
// carries the number of bytes that reached it.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
	"github.com/robert-malhotra/copernicus-cli/pkg/stac"
)

// DefaultTimeout bounds a single product download.
const DefaultTimeout = 12 * time.Hour

// ProgressFunc reports cumulative bytes downloaded and the expected total.
// total is -1 when the server does not announce a length.
type ProgressFunc func(downloaded, total int64)

// Result describes a completed download.
type Result struct {
	Path         string
	BytesWritten uint64
}

// Option configures a Downloader.
type Option func(*Downloader)

// Downloader fetches product archives one at a time.
type Downloader struct {
	httpClient *http.Client
	timeout    time.Duration
	fs         afero.Fs
	rewrite    Rewrite
	progress   ProgressFunc
	logger     *log.Logger
	s3         S3Getter
	s3Endpoint string
}

// WithHTTPClient sets the HTTP client used for http(s) hrefs.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithTimeout bounds each download, from request to the last byte.
func WithTimeout(t time.Duration) Option {
	return func(d *Downloader) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithFs sets the filesystem archives are written to.
func WithFs(fs afero.Fs) Option {
	return func(d *Downloader) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithRewrite replaces the href rewrite rule. Pass NoRewrite to disable it.
func WithRewrite(r Rewrite) Option {
	return func(d *Downloader) {
		if r != nil {
			d.rewrite = r
		}
	}
}

// WithProgress sets the default progress callback used by Fetch.
func WithProgress(p ProgressFunc) Option {
	return func(d *Downloader) { d.progress = p }
}

// WithLogger registers a logger for download events.
func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithS3Getter injects the S3 client used for s3:// hrefs.
func WithS3Getter(g S3Getter) Option {
	return func(d *Downloader) { d.s3 = g }
}

// WithS3Endpoint overrides DefaultS3Endpoint.
func WithS3Endpoint(endpoint string) Option {
	return func(d *Downloader) {
		if endpoint != "" {
			d.s3Endpoint = endpoint
		}
	}
}

// New returns a Downloader writing to the OS filesystem.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		fs:         afero.NewOsFs(),
		rewrite:    DefaultRewrite,
		logger:     log.New(io.Discard),
		s3Endpoint: DefaultS3Endpoint,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Fetch downloads the product of feature to <outputDir>/<id>.zip.
func (d *Downloader) Fetch(ctx context.Context, feature *stac.Feature, token *auth.Token, outputDir string) (*Result, error) {
	return d.FetchWithProgress(ctx, feature, token, outputDir, d.progress)
}

// FetchWithProgress is Fetch with a per-call progress callback.
func (d *Downloader) FetchWithProgress(
	ctx context.Context,
	feature *stac.Feature,
	token *auth.Token,
	outputDir string,
	progress ProgressFunc,
) (*Result, error) {
	if feature == nil {
		return nil, ErrMissingID
	}
	id, ok := feature.DisplayID()
	if !ok {
		return nil, ErrMissingID
	}
	href, ok := feature.ProductHref()
	if !ok {
		return nil, fmt.Errorf("%w: feature %s", ErrMissingProductHref, id)
	}
	u, err := d.resolve(href)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body, total, err := d.open(ctx, u, token)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if err := d.fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &WriteError{Path: outputDir, Err: err}
	}
	dest := filepath.Join(outputDir, fileName(id))

	written, err := d.writeFile(ctx, dest, body, total, progress)
	if err != nil {
		return nil, err
	}
	d.logger.Info("downloaded product", "id", id, "path", dest, "bytes", written)
	return &Result{Path: dest, BytesWritten: written}, nil
}

func (d *Downloader) resolve(href string) (*url.URL, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMissingProductHref, href, err)
	}
	if u.Scheme == "s3" {
		return u, nil
	}
	d.rewrite(u)
	return u, nil
}

func (d *Downloader) open(ctx context.Context, u *url.URL, token *auth.Token) (io.ReadCloser, int64, error) {
	switch u.Scheme {
	case "http", "https":
		return d.openHTTP(ctx, u, token)
	case "s3":
		return d.openS3(ctx, u)
	default:
		return nil, 0, fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
}

func (d *Downloader) openHTTP(ctx context.Context, u *url.URL, token *auth.Token) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	token.Authorize(req)

	d.logger.Debug("download request", "url", u.String())
	resp, err := d.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, 0, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		d.logger.Error("download rejected", "status", resp.StatusCode, "url", u.String())
		return nil, 0, &StatusError{URL: u.String(), Status: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

// writeFile copies src into path, truncating any previous content. The file
// is closed on every return; on error it keeps whatever was written.
func (d *Downloader) writeFile(ctx context.Context, path string, src io.Reader, total int64, progress ProgressFunc) (written uint64, err error) {
	out, err := d.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = &WriteError{Path: path, BytesWritten: written, Err: cerr}
		}
	}()

	if progress != nil {
		progress(0, total)
	}

	n, err := copyWithProgress(ctx, out, src, total, progress)
	written = uint64(n)
	if err != nil {
		if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		d.logger.Warn("download interrupted, partial file kept", "path", path, "bytes", written, "err", err)
		return written, &WriteError{Path: path, BytesWritten: written, Err: err}
	}
	return written, nil
}

func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	const defaultBufferSize = 32 * 1024
	buf := make([]byte, defaultBufferSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, writeErr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
			if progress != nil {
				progress(written, total)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, readErr
		}
	}
}

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")

func fileName(id string) string {
	name := unsafeName.Replace(id)
	if name == "." || name == ".." {
		name = "_"
	}
	return name + ".zip"
}
