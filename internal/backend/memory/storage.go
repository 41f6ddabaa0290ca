// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
)

// Object is one stored blob.
type Object struct {
	Body        []byte
	ContentType string
}

// Storage is a [backend.Storage] held in memory.
type Storage struct {
	mu        sync.RWMutex
	objects   map[string]Object
	publicURL string
	failure   error
}

// NewStorage returns an empty store whose public URLs start with publicURL.
func NewStorage(publicURL string) *Storage {
	return &Storage{
		objects:   make(map[string]Object),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

var _ backend.Storage = (*Storage)(nil)

func (storage *Storage) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Remote(err)
	}

	storage.mu.RLock()
	failure := storage.failure
	storage.mu.RUnlock()
	if failure != nil {
		return apperr.Remote(failure)
	}

	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, body); err != nil {
		return apperr.Remote(fmt.Errorf("read upload body: %w", err))
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()

	objectKey := bucket + "/" + key
	if _, exists := storage.objects[objectKey]; exists {
		return apperr.Remote(errors.New("the resource already exists"))
	}
	storage.objects[objectKey] = Object{Body: buffer.Bytes(), ContentType: contentType}
	return nil
}

func (storage *Storage) PublicURL(bucket, key string) string {
	return storage.publicURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}

// Get returns a stored object.
func (storage *Storage) Get(bucket, key string) (Object, bool) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	object, ok := storage.objects[bucket+"/"+key]
	return object, ok
}

// Len reports how many objects are stored.
func (storage *Storage) Len() int {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return len(storage.objects)
}

// FailWith makes every upload fail with err until cleared with nil.
func (storage *Storage) FailWith(err error) {
	storage.mu.Lock()
	storage.failure = err
	storage.mu.Unlock()
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
