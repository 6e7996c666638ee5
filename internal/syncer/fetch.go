package syncer

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// fetchResult is the outcome of one conditional GET.
type fetchResult struct {
	notModified bool
	content     string
	etag        string
}

// fetch issues a single conditional GET against url. A cached etag rides
// the If-None-Match header; a 304 answer means the cached content is still
// current. Anything other than 200 or 304 is an error.
func (s *Syncer) fetch(ctx context.Context, url, etag string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("syncer: build request for %s: %w", url, err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("syncer: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return &fetchResult{notModified: true}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("syncer: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	// Read one byte past the cap so an oversized body is detected instead
	// of silently truncated.
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("syncer: read body from %s: %w", url, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("syncer: response from %s exceeds %d byte limit", url, s.maxBody)
	}

	return &fetchResult{content: string(body), etag: resp.Header.Get("ETag")}, nil
}
