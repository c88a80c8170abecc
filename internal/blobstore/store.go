// Package blobstore is the pass-through storage behind the file endpoints.
// Blobs are opaque bytes addressed by a sanitized name.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no blob exists under a name
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob
type Object struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store persists and serves blobs by name
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*Object, error)
	Get(ctx context.Context, name string) ([]byte, *Object, error)
	Exists(ctx context.Context, name string) (bool, error)
	Backend() string
}

// SanitizeName strips any directory component from a client supplied name and
// rejects names that cannot be stored safely.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	if strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("hidden blob names are not allowed: %q", name)
	}
	if len(base) > 255 {
		return "", fmt.Errorf("blob name too long")
	}
	return base, nil
}
