package types

import "time"

// ObjectInfo represents metadata about a stored object. It is returned by
// Stat and by list iterators; list entries may omit fields the backend does
// not report without an extra round trip.
type ObjectInfo struct {
	Path         string            `json:"path"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
	ETag         string            `json:"etag,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	IsDir        bool              `json:"is_dir,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
