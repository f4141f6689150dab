package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/image-factory/internal/common"
)

// LocalFS serves a directory as the blob backend. Public URLs are
// BaseURL/key; the HTTP layer serves the directory under that prefix.
type LocalFS struct {
	Root    string
	BaseURL string
}

func (l LocalFS) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(l.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", common.NewAppError("BLOB_PUT_FAILED", err.Error(), common.ErrBlobUnavailable)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", common.NewAppError("BLOB_PUT_FAILED", err.Error(), common.ErrBlobUnavailable)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", common.NewAppError("BLOB_PUT_FAILED", err.Error(), common.ErrBlobUnavailable)
	}
	return strings.TrimRight(l.BaseURL, "/") + "/" + clean, nil
}

// Open returns the stored file for key.
func (l LocalFS) Open(key string) (*os.File, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(l.Root, filepath.FromSlash(clean)))
}

// Exists reports whether key has been written.
func (l LocalFS) Exists(key string) bool {
	clean, err := cleanKey(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(l.Root, filepath.FromSlash(clean)))
	return err == nil
}

func cleanKey(key string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + key))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", common.NewAppError("BLOB_KEY_INVALID", "empty blob key", common.ErrValidation)
	}
	return clean, nil
}
