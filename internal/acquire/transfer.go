// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// transfer fetches locator into a temporary file next to dest, validates
// it, and renames it to dest. The temporary file is removed on any failure
// so nothing partial is ever visible at dest. With altHeaders the request
// imitates a browser navigation from the locator's own site.
func (m *Manager) transfer(ctx context.Context, locator, dest string, altHeaders bool) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return 0, &DownloadError{Kind: types.KindNetwork, Permanent: true, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")
	req.Header.Set("User-Agent", m.userAgent)
	if altHeaders {
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		if u, err := url.Parse(locator); err == nil {
			req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
		}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return 0, err
	}
	if ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); ct == "text/html" {
		return 0, validationError(ErrHTMLPage)
	}
	if m.cfg.MaxBytes > 0 && resp.ContentLength > m.cfg.MaxBytes {
		return 0, validationError(fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*.tmp")
	if err != nil {
		return 0, fsError("creating temp file", err)
	}
	tmpPath := tmp.Name()
	promoted := false
	defer func() {
		if !promoted {
			os.Remove(tmpPath)
		}
	}()

	var body io.Reader = &ctxReader{ctx: ctx, r: resp.Body}
	if m.cfg.MaxBytes > 0 {
		body = io.LimitReader(body, m.cfg.MaxBytes+1)
	}
	n, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		var pathErr *os.PathError
		if errors.As(copyErr, &pathErr) {
			return 0, fsError("writing download", copyErr)
		}
		return 0, classifyTransportError(ctx, copyErr)
	}
	if closeErr != nil {
		return 0, fsError("closing temp file", closeErr)
	}

	if err := m.validate(tmpPath, n); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fsError("renaming temp file", err)
	}
	promoted = true
	return n, nil
}

// validate checks size bounds and that the content sniffs as a PDF.
func (m *Manager) validate(path string, size int64) error {
	if size == 0 || size < m.cfg.MinBytes {
		return validationError(fmt.Errorf("%w: %d bytes", ErrTooSmall, size))
	}
	if m.cfg.MaxBytes > 0 && size > m.cfg.MaxBytes {
		return validationError(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, m.cfg.MaxBytes))
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fsError("reading temp file", err)
	}
	if mt.Is("text/html") {
		return validationError(ErrHTMLPage)
	}
	if !mt.Is("application/pdf") {
		return validationError(fmt.Errorf("%w: detected %s", ErrNotPDF, mt.String()))
	}
	return nil
}

// checkStatus classifies non-200 replies. 408, 429, and 5xx are transient;
// 403 is retried once with alternate headers; other 4xx are permanent.
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusRequestTimeout:
		return &DownloadError{Kind: types.KindTimeout, Status: code, Err: errors.New(http.StatusText(code))}
	case code == http.StatusTooManyRequests || code >= 500:
		return &DownloadError{Kind: types.KindNetwork, Status: code, Err: errors.New(http.StatusText(code))}
	case code == http.StatusForbidden:
		return &DownloadError{Kind: types.KindNetwork, Status: code, Err: errors.New(http.StatusText(code))}
	default:
		return &DownloadError{Kind: types.KindNetwork, Status: code, Permanent: true, Err: fmt.Errorf("unexpected HTTP %d", code)}
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &DownloadError{Kind: types.KindTimeout, Err: err}
	}
	return &DownloadError{Kind: types.KindNetwork, Err: err}
}

// ctxReader stops a body copy as soon as ctx ends.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
