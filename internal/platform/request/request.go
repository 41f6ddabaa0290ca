// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and the form
decoding patterns shared by the storefront and the admin panel.
*/
package requestutil

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/validate"
)

// maxMemory is the in-memory share of a multipart body; the rest spills to disk.
const maxMemory = 8 << 20

/*
ParseForm parses url-encoded and multipart bodies alike.

Returns:
  - error: validate.ErrInvalidForm if the body cannot be parsed
*/
func ParseForm(request *http.Request) error {
	contentType := request.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := request.ParseMultipartForm(maxMemory); err != nil {
			return validate.ErrInvalidForm
		}
		return nil
	}
	if err := request.ParseForm(); err != nil {
		return validate.ErrInvalidForm
	}
	return nil
}

/*
FormValues collects the posted values of the named fields, trimmed of
surrounding whitespace. Missing fields map to "".
*/
func FormValues(request *http.Request, names ...string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = strings.TrimSpace(request.PostFormValue(name))
	}
	return values
}

/*
File returns the uploaded file for a multipart field, or (nil, nil, nil) when
the field is absent or empty.
*/
func File(request *http.Request, name string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := request.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, validate.ErrInvalidForm
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, nil, nil
	}
	return file, header, nil
}

/*
ID retrieves a named URL parameter holding a record id.

Returns:
  - string: the id
  - bool: false when the parameter is not a well-formed UUID
*/
func ID(request *http.Request, name string) (string, bool) {
	id := chi.URLParam(request, name)
	v := &validate.Validator{}
	v.UUID(name, id)
	return id, !v.HasErrors()
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Session returns the admin session placed in the context by the route guard.
*/
func Session(request *http.Request) *backend.Session {
	return ctxutil.GetSession(request.Context())
}
