// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/sec"
)

// csrfCookieMaxAge keeps the token valid for a day of admin work.
const csrfCookieMaxAge = 86400

// CSRFConfig configures the double-submit cookie.
type CSRFConfig struct {
	CookieSecure bool
}

/*
CSRF protects state-changing requests with a double-submit cookie.

Safe methods pass through and receive a token cookie when they lack one. The
token is placed in the context so templates can embed it as a hidden field.
Other methods must echo the cookie in the csrf_token form field or in the
X-CSRF-Token header.
*/
func CSRF(config CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := ""
			if cookie, err := request.Cookie(constants.CSRFCookieName); err == nil {
				token = cookie.Value
			}

			if isSafeMethod(request.Method) {
				if token == "" {
					token = issueCSRFCookie(writer, request, config)
				}
				next.ServeHTTP(writer, request.WithContext(ctxutil.WithCSRFToken(request.Context(), token)))
				return
			}

			submitted := request.Header.Get(constants.CSRFHeaderName)
			if submitted == "" {
				// PostFormValue parses multipart bodies too.
				submitted = request.PostFormValue(constants.CSRFFormField)
			}

			if token == "" || submitted == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "csrf_validation_failed",
					slog.Bool("cookie_present", token != ""),
					slog.Bool("token_submitted", submitted != ""),
				)
				http.Error(writer, "CSRF token validation failed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(writer, request.WithContext(ctxutil.WithCSRFToken(request.Context(), token)))
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func issueCSRFCookie(writer http.ResponseWriter, request *http.Request, config CSRFConfig) string {
	token, err := sec.GenerateSecureToken(32)
	if err != nil {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "csrf_token_generation_failed", slog.Any("error", err))
		return ""
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
