// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"net/http"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/constants"
)

// Cookies reads and writes the session cookie. The zero value uses the default name.
type Cookies struct {
	Name   string
	Secure bool
}

func (cookies Cookies) name() string {
	if cookies.Name == "" {
		return constants.SessionCookieName
	}
	return cookies.Name
}

// Token returns the access token carried by the request, or "".
func (cookies Cookies) Token(request *http.Request) string {
	cookie, err := request.Cookie(cookies.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Set stores the session's access token until the session expires.
func (cookies Cookies) Set(writer http.ResponseWriter, session *backend.Session) {
	maxAge := 0
	if !session.ExpiresAt.IsZero() {
		maxAge = max(1, int(time.Until(session.ExpiresAt).Seconds()))
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     cookies.name(),
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookie.
func (cookies Cookies) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     cookies.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
