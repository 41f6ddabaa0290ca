// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

// Local is a [backend.Storage] on a directory, one sub-directory per bucket.
// It also serves the stored files, so it can stand in for a public bucket.
type Local struct {
	basePath string
	public   string
}

var _ backend.Storage = (*Local)(nil)

// NewLocal creates the base directory when missing.
func NewLocal(basePath, publicURL string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: failed to create storage directory: %w", err)
	}
	return &Local{basePath: basePath, public: publicURL}, nil
}

func (store *Local) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Remote(err)
	}

	filePath, err := store.safeJoin(bucket, key)
	if err != nil {
		return apperr.Remote(err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return apperr.Remote(fmt.Errorf("failed to create bucket directory: %w", err))
	}

	// O_EXCL refuses to overwrite an existing object.
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return apperr.Remote(errors.New("the resource already exists"))
	}
	if err != nil {
		return apperr.Remote(fmt.Errorf("failed to create file: %w", err))
	}

	if _, err := io.Copy(file, body); err != nil {
		if cerr := file.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return apperr.Remote(fmt.Errorf("failed to write file: %w", err))
	}
	if err := file.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return apperr.Remote(fmt.Errorf("failed to close file: %w", err))
	}
	return nil
}

func (store *Local) PublicURL(bucket, key string) string {
	return publicURL(store.public, bucket, key)
}

// ServeHTTP serves /{bucket}/{key}. Mount it behind http.StripPrefix.
func (store *Local) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet && request.Method != http.MethodHead {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(request.URL.Path, "/"), "/")
	if !ok || bucket == "" || key == "" {
		http.NotFound(writer, request)
		return
	}

	filePath, err := store.safeJoin(bucket, key)
	if err != nil {
		http.NotFound(writer, request)
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		http.NotFound(writer, request)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(writer, request)
		return
	}

	writer.Header().Set("Content-Type", contentTypeFor(key))
	writer.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(writer, request, info.Name(), info.ModTime(), file)
}

// safeJoin resolves bucket/key relative to basePath and rejects directory traversal.
func (store *Local) safeJoin(bucket, key string) (string, error) {
	absBase, err := filepath.Abs(store.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absBucket, err := filepath.Abs(filepath.Join(store.basePath, bucket))
	if err != nil || filepath.Dir(absBucket) != absBase {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}

	absPath, err := filepath.Abs(filepath.Join(absBucket, key))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBucket+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
