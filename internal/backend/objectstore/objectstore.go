// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package objectstore implements the storage half of the backend on an
// S3-compatible bucket or on a local directory.
package objectstore

import (
	"net/url"
	"strings"
)

// publicURL joins a public base, a bucket and an object key into a URL.
// Each key segment is escaped on its own so prefixes survive as paths.
func publicURL(base, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// contentTypeFor maps a stored extension back to its image type.
func contentTypeFor(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
