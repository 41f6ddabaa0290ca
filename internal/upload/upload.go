// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upload stores one image at a time in the shared bucket and returns its
public address.

Keys are randomized so two uploads of the same file name never collide:

	<prefix><slug of base name>-<uuidv7><.ext>

e.g. "blog-monstera-0192b1c4-6a3e-7c1f-9d0a-5b2f4c8e1a77.jpg".
*/
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/pkg/slug"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// DefaultMaxBytes is the size cap when none is configured.
const DefaultMaxBytes = 5 << 20

var (
	// ErrUploadInProgress is returned while another upload of the same adapter runs.
	ErrUploadInProgress = errors.New("an upload is already in progress")

	// ErrUnsupportedType is returned for anything but JPEG, PNG, GIF or WebP.
	ErrUnsupportedType = errors.New("unsupported image format")

	// ErrTooLarge is returned when the file exceeds the size cap.
	ErrTooLarge = errors.New("file is too large")

	// ErrEmpty is returned for a zero-byte file.
	ErrEmpty = errors.New("file is empty")
)

// File is one picked file.
type File struct {
	Name string
	Body io.Reader
}

// Options configures an [Adapter].
type Options struct {
	Bucket   string
	Prefix   string
	MaxBytes int64
	Timeout  time.Duration

	// Recorder, when set, counts outcomes for metrics.
	Recorder Recorder
}

// Recorder receives "ok" or "failed" per upload.
type Recorder interface {
	RecordUpload(outcome string)
}

// Adapter uploads assets for one form.
type Adapter struct {
	storage  backend.Storage
	bucket   string
	prefix   string
	maxBytes int64
	timeout  time.Duration
	recorder Recorder

	busy atomic.Bool
}

// New returns an adapter writing to storage.
func New(storage backend.Storage, options Options) *Adapter {
	maxBytes := options.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Adapter{
		storage:  storage,
		bucket:   options.Bucket,
		prefix:   options.Prefix,
		maxBytes: maxBytes,
		timeout:  options.Timeout,
		recorder: options.Recorder,
	}
}

// Uploading reports whether an upload is in flight.
func (adapter *Adapter) Uploading() bool {
	return adapter.busy.Load()
}

/*
Upload validates the file, stores it under a fresh key and returns its public
address.

It refuses to start while another upload of this adapter is in flight.
*/
func (adapter *Adapter) Upload(ctx context.Context, file File) (string, error) {
	if !adapter.busy.CompareAndSwap(false, true) {
		return "", ErrUploadInProgress
	}
	defer adapter.busy.Store(false)

	address, err := adapter.upload(ctx, file)
	adapter.record(err)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "asset_upload_failed",
			slog.String("file", file.Name),
			slog.Any("error", err),
		)
		return "", err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "asset_uploaded", slog.String("url", address))
	return address, nil
}

func (adapter *Adapter) upload(ctx context.Context, file File) (string, error) {
	data, err := io.ReadAll(io.LimitReader(file.Body, adapter.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > adapter.maxBytes {
		return "", ErrTooLarge
	}

	contentType, ok := SniffImage(data)
	if !ok {
		return "", ErrUnsupportedType
	}

	key := Key(adapter.prefix, file.Name)

	if adapter.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, adapter.timeout)
		defer cancel()
	}

	if err := adapter.storage.Upload(ctx, adapter.bucket, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}
	return adapter.storage.PublicURL(adapter.bucket, key), nil
}

func (adapter *Adapter) record(err error) {
	if adapter.recorder == nil {
		return
	}
	if err != nil {
		adapter.recorder.RecordUpload("failed")
		return
	}
	adapter.recorder.RecordUpload("ok")
}

// # Keys

// Key builds a randomized storage key from a prefix and the original file name.
// The extension is lowercased and omitted when the name has none.
func Key(prefix, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	name := strings.TrimSuffix(base, path.Ext(base))

	// A bare dot, or an extension that does not survive slugging, is dropped.
	if len(ext) <= 1 || slug.From(ext[1:]) != ext[1:] {
		ext = ""
	}

	return prefix + slug.FromOr(name, "file") + "-" + uuid.New() + ext
}

// # Sniffing

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a RIFF container with "WEBP" at offset 8.
// The stdlib sniffer has no WebP signature.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// SniffImage returns the detected MIME type and true if data is an accepted image.
func SniffImage(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// Message is the text a form shows for a failed upload.
func Message(err error) string {
	return "Error uploading image: " + err.Error()
}
