package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// Storage persists uploaded media and returns a location clients can fetch it from.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// cleanKey rejects keys that are empty or escape the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}

func joinURL(base, key string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return key
	}
	return base + "/" + key
}
