package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// LocalStore keeps blobs on local disk under a single directory
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory with restricted permissions
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	log.Printf("📁 [BLOB] Local blob store at %s", dir)
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Backend() string { return "local" }

// Put writes the blob through a temp file so readers never see partial data
func (s *LocalStore) Put(ctx context.Context, name string, data []byte, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, clean)); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Object{Name: clean, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, *Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	clean, err := SanitizeName(name)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, &Object{
		Name:        clean,
		Size:        int64(len(data)),
		ContentType: http.DetectContentType(data),
	}, nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
