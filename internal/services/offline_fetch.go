package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dice-offline/internal/models"
)

const maxAssetBytes = 32 << 20

var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// HTTPFetcher fetches requests from the origin the offline edge fronts.
type HTTPFetcher struct {
	origin *url.URL
	client *http.Client
}

func NewHTTPFetcher(origin string, timeout time.Duration) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin must be an http(s) URL: %q", origin)
	}
	return &HTTPFetcher{
		origin: u,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (f *HTTPFetcher) Origin() string {
	return f.origin.String()
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *http.Request) (*models.CachedResponse, error) {
	target := *f.origin
	target.Path = f.origin.Path + NormalizePath(req.URL.Path)
	target.RawQuery = req.URL.RawQuery

	var body io.Reader
	if req.Body != nil && req.Method != http.MethodGet && req.Method != http.MethodHead {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	out.Header = req.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	stripHopHeaders(out.Header)

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target.Path, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("read %s: %w", target.Path, ErrResponseTooLarge)
	}

	header := resp.Header.Clone()
	stripHopHeaders(header)
	header.Del("Content-Length")

	return &models.CachedResponse{
		Status:   resp.StatusCode,
		Header:   header,
		Body:     data,
		StoredAt: time.Now().UTC(),
	}, nil
}

func stripHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
