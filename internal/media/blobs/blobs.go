// Package blobs stores submission bytes and hands back opaque references.
package blobs

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ErrUnknownRef is returned when a reference does not belong to the backend.
var ErrUnknownRef = errors.New("unknown blob reference")

// Storage persists bytes and releases them by reference.
type Storage interface {
	// Store writes data and returns an opaque reference. hint groups objects
	// (for example by game) and may be empty.
	Store(ctx context.Context, data []byte, contentType, hint string) (string, error)
	// Release deletes the object behind ref. Releasing a missing object is not an error.
	Release(ctx context.Context, ref string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"video/ogg":  ".ogv",
}

// ObjectKey builds "<slug(hint)>/<uuid><ext>". An empty hint uses "misc".
func ObjectKey(hint, contentType string) string {
	dir := slug.Make(hint)
	if dir == "" {
		dir = "misc"
	}
	base, _, _ := strings.Cut(contentType, ";")
	ext := extensions[strings.ToLower(strings.TrimSpace(base))]
	if ext == "" {
		ext = ".bin"
	}
	return path.Join(dir, uuid.NewString()+ext)
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for part := range strings.SplitSeq(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
