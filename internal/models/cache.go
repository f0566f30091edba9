package models

import (
	"net/http"
	"time"
)

// CachedResponse is a stored copy of an asset response.
type CachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// OK reports a 2xx status.
func (r *CachedResponse) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

func (r *CachedResponse) Clone() *CachedResponse {
	if r == nil {
		return nil
	}
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	return &CachedResponse{
		Status:   r.Status,
		Header:   r.Header.Clone(),
		Body:     body,
		StoredAt: r.StoredAt,
	}
}

// CacheSource says where a served response came from.
type CacheSource string

const (
	SourceCache       CacheSource = "hit"
	SourceNetwork     CacheSource = "network"
	SourceMiss        CacheSource = "miss"
	SourceFallback    CacheSource = "fallback"
	SourcePassthrough CacheSource = "passthrough"
)
