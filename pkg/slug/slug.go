// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII slugs from arbitrary Unicode strings.
//
// # Usage
//
// Upload keys start with the slug of the original file name
// (e.g. "Monstera Deliciosa.JPG" becomes "monstera-deliciosa").
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps slugs so storage keys stay short.
const MaxLength = 64

var (
	// nonAlphanumeric matches any sequence of non-alphanumeric, non-hyphen characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]+`)
	// multiHyphen collapses multiple consecutive hyphens into one.
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// From converts an arbitrary Unicode string into an ASCII slug of at most [MaxLength] bytes.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD and removes combining marks (é → e).
// 2. Lowercases.
// 3. Replaces everything but letters and digits with hyphens, collapsing runs.
// 4. Truncates and trims leading and trailing hyphens.
func From(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, result)

	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	if len(result) > MaxLength {
		result = result[:MaxLength]
	}
	return strings.Trim(result, "-")
}

// FromOr is [From] with a fallback for input that has no letters or digits.
func FromOr(s, fallback string) string {
	if result := From(s); result != "" {
		return result
	}
	return fallback
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
