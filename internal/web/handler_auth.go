// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mknursery/internal/platform/request"
	"github.com/taibuivan/mknursery/internal/platform/validate"
)

const (
	MsgPasswordsMismatch = "Passwords do not match."
	MsgResetLinkMissing  = "Open the link from your password reset email to continue."
)

// # Sign In

type loginData struct {
	Email string
	Error string
}

// loginPage skips the form for an admin who is already signed in.
func (server *Server) loginPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if token := server.options.Cookies.Token(request); token != "" {
		current, err := server.options.Auth.GetSession(ctx, token)
		if err == nil && current != nil && !current.Recovery {
			http.Redirect(writer, request, "/admin/dashboard", http.StatusSeeOther)
			return
		}
	}
	server.render(writer, request, http.StatusOK, "pages/login.html", page{Title: "Admin Login", Data: loginData{}})
}

func (server *Server) login(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if err := requestutil.ParseForm(request); err != nil {
		server.render(writer, request, http.StatusBadRequest, "pages/login.html", page{
			Title: "Admin Login",
			Data:  loginData{Error: apperr.Message(err)},
		})
		return
	}

	email := strings.TrimSpace(request.PostFormValue("email"))
	password := request.PostFormValue("password")

	signedIn, err := server.options.Auth.SignIn(ctx, email, password)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_sign_in_failed", slog.Any("error", err))
		server.render(writer, request, apperr.Status(err), "pages/login.html", page{
			Title: "Admin Login",
			Data:  loginData{Email: email, Error: apperr.Message(err)},
		})
		return
	}

	server.options.Cookies.Set(writer, signedIn)
	http.Redirect(writer, request, "/admin/dashboard", http.StatusSeeOther)
}

// logout ends the session (best effort) and returns to the storefront.
func (server *Server) logout(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if token := server.options.Cookies.Token(request); token != "" {
		if err := server.options.Auth.SignOut(ctx, token); err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_sign_out_failed", slog.Any("error", err))
		}
	}
	server.options.Cookies.Clear(writer)
	http.Redirect(writer, request, "/", http.StatusSeeOther)
}

// # Password Recovery

type forgotData struct {
	Email string
	Sent  bool
	Error string
}

func (server *Server) forgotPage(writer http.ResponseWriter, request *http.Request) {
	server.render(writer, request, http.StatusOK, "pages/forgot.html", page{Title: "Reset Password", Data: forgotData{}})
}

func (server *Server) forgot(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if err := requestutil.ParseForm(request); err != nil {
		server.render(writer, request, http.StatusBadRequest, "pages/forgot.html", page{
			Title: "Reset Password",
			Data:  forgotData{Error: apperr.Message(err)},
		})
		return
	}

	email := strings.TrimSpace(request.PostFormValue("email"))
	redirectTo := strings.TrimRight(server.options.PublicURL, "/") + "/reset-password"

	if err := server.options.Auth.RequestPasswordReset(ctx, email, redirectTo); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "password_reset_request_failed", slog.Any("error", err))
		server.render(writer, request, apperr.Status(err), "pages/forgot.html", page{
			Title: "Reset Password",
			Data:  forgotData{Email: email, Error: apperr.Message(err)},
		})
		return
	}

	server.render(writer, request, http.StatusOK, "pages/forgot.html", page{
		Title: "Reset Password",
		Data:  forgotData{Email: email, Sent: true},
	})
}

type resetData struct {
	Ready       bool
	Error       string
	FieldErrors map[string]string
}

/*
resetPage exchanges the token of a reset link for a recovery session.

The recovery session lives in its own cookie; it never opens the admin panel.
A page reload without the token keeps working while that cookie is live.
*/
func (server *Server) resetPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	render := func(status int, data resetData) {
		server.render(writer, request, status, "pages/reset.html", page{Title: "Set a New Password", Data: data})
	}

	if token := request.URL.Query().Get("token"); token != "" {
		recovery, err := server.options.Auth.ExchangeRecoveryToken(ctx, token)
		if err != nil {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "recovery_exchange_failed", slog.Any("error", err))
			render(apperr.Status(err), resetData{Error: apperr.Message(err)})
			return
		}
		server.options.Recovery.Set(writer, recovery)
		render(http.StatusOK, resetData{Ready: true})
		return
	}

	if server.recoverySession(request) {
		render(http.StatusOK, resetData{Ready: true})
		return
	}
	render(http.StatusOK, resetData{Error: MsgResetLinkMissing})
}

func (server *Server) reset(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	render := func(status int, data resetData) {
		server.render(writer, request, status, "pages/reset.html", page{Title: "Set a New Password", Data: data})
	}

	if err := requestutil.ParseForm(request); err != nil {
		render(http.StatusBadRequest, resetData{Ready: true, Error: apperr.Message(err)})
		return
	}

	password := request.PostFormValue("password")
	confirm := request.PostFormValue("confirm_password")

	v := &validate.Validator{}
	v.Required("password", password).
		Custom("confirm_password", password != confirm, MsgPasswordsMismatch)
	if err := v.Err(); err != nil {
		render(http.StatusUnprocessableEntity, resetData{Ready: true, FieldErrors: validate.FieldErrors(err)})
		return
	}

	token := server.options.Recovery.Token(request)
	if token == "" {
		render(http.StatusUnauthorized, resetData{Error: MsgResetLinkMissing})
		return
	}

	if err := server.options.Auth.UpdatePassword(ctx, token, password); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "password_update_failed", slog.Any("error", err))
		render(apperr.Status(err), resetData{Ready: true, Error: apperr.Message(err)})
		return
	}

	server.options.Recovery.Clear(writer)
	// Every session was revoked; the admin cookie is stale now.
	server.options.Cookies.Clear(writer)
	http.Redirect(writer, request, "/login", http.StatusSeeOther)
}

func (server *Server) recoverySession(request *http.Request) bool {
	token := server.options.Recovery.Token(request)
	if token == "" {
		return false
	}
	current, err := server.options.Auth.GetSession(request.Context(), token)
	return err == nil && current != nil && current.Recovery
}
