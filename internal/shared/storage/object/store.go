package object

import "context"

// Receipt describes an object written to storage.
type Receipt struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ETag        string `json:"etag,omitempty"`
	VersionID   string `json:"versionId,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// Uploader writes whole objects to a bucket under a key.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, data []byte) (Receipt, error)
}
