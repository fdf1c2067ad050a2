package storage

import (
	"context"
	"fmt"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts the object store holding team media. Keys are opaque
// to callers; public URLs are derived, not stored.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// TeamMediaKey builds the object key for a team media asset. All of a team's
// media lives under one teams/<id>/ prefix; re-uploading a kind overwrites
// the previous object instead of leaving orphans behind.
func TeamMediaKey(teamID int, kind, ext string) string {
	return fmt.Sprintf("teams/%d/%s%s", teamID, kind, ext)
}
