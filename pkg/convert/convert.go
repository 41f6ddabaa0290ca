// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert coerces submitted form text into numeric column values.

Malformed input never fails: integers fall back to a default and decimals to
nil, which is stored as NULL. Callers that must tell malformed input from a
zero value use strconv directly.
*/
package convert

import (
	"math"
	"strconv"
	"strings"
)

/*
ToIntD parses the leading integer of s, returning def when there is none.

"12" and "12.7" both give 12, and "-3" gives -3. A number too large for an
int also gives def.
*/
func ToIntD(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}

	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return def
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return def
	}
	return v
}

// ToFloat64Ptr parses a finite decimal, returning nil when s is empty or malformed.
func ToFloat64Ptr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
