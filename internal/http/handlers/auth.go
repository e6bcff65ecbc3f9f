package handlers

import (
	"bytes"
	"errors"
	"log"

	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/auth"
	"github.com/TehSN/ocd-project/internal/common"
	"github.com/TehSN/ocd-project/internal/session"
	ui "github.com/TehSN/ocd-project/web"
)

type loginPageData struct {
	Roster     []auth.UserInfo
	IsDarkMode bool
	Degraded   bool
	Error      string
	// SelectedUser pre-selects a roster card after a failed attempt.
	SelectedUser string
}

// LoginForm renders the user-selection / password screen with the fixed
// roster and each user's exists/hasPassword status.
func LoginForm(authSvc *auth.Service, degraded bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		renderLogin(ctx, authSvc, degraded, "", "")
	}
}

func renderLogin(ctx *fasthttp.RequestCtx, authSvc *auth.Service, degraded bool, errMsg, selected string) {
	t := ui.Templates().Lookup("login")
	if t == nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("login template not found")
		return
	}
	data := loginPageData{
		Roster:       authSvc.ListRoster(),
		Degraded:     degraded,
		Error:        errMsg,
		SelectedUser: selected,
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	if errMsg != "" {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// LoginSubmit authenticates a roster user, or sets their password first
// when the record has none (password + confirmation posted together).
func LoginSubmit(authSvc *auth.Service, sess *session.Session, degraded bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := string(ctx.PostArgs().Peek("password"))
		confirm := string(ctx.PostArgs().Peek("confirm_password"))

		err := authSvc.AuthenticateUser(username, password)
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrNoPasswordSet) {
			// First login for this roster user: create the record with
			// this password, if a matching confirmation was supplied.
			if confirm == "" {
				renderLogin(ctx, authSvc, degraded, "Set a password to continue.", username)
				return
			}
			if confirm != password {
				renderLogin(ctx, authSvc, degraded, "Passwords do not match.", username)
				return
			}
			err = authSvc.CreateUser(username, password)
		}
		if err != nil {
			// Validation details are safe to show; auth failures collapse
			// to generic wording.
			msg := "Invalid username or password."
			if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrStorage) {
				msg = err.Error()
			}
			loginsTotal.WithLabelValues("failure").Inc()
			renderLogin(ctx, authSvc, degraded, msg, username)
			return
		}

		if _, err := sess.Login(username); err != nil {
			loginsTotal.WithLabelValues("failure").Inc()
			renderLogin(ctx, authSvc, degraded, "Invalid username or password.", username)
			return
		}
		loginsTotal.WithLabelValues("success").Inc()

		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue(username)
		c.SetPath("/")
		c.SetHTTPOnly(true)
		ctx.Response.Header.SetCookie(&c)

		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// Logout switches back to user selection. Per-user data stays intact.
func Logout(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sess.SwitchUser()

		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue("")
		c.SetPath("/")
		c.SetMaxAge(-1)
		ctx.Response.Header.SetCookie(&c)
		ctx.Redirect("/login", fasthttp.StatusSeeOther)
	}
}

// ChangePasswordSelf changes the logged-in user's password after
// verifying the current one.
func ChangePasswordSelf(authSvc *auth.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username, ok := MustUsername(ctx)
		if !ok {
			return
		}

		current := string(ctx.PostArgs().Peek("current_password"))
		newPassword := string(ctx.PostArgs().Peek("new_password"))
		confirm := string(ctx.PostArgs().Peek("confirm_password"))

		if current == "" || newPassword == "" || confirm == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "all password fields are required")
			return
		}
		if newPassword != confirm {
			errResponse(ctx, fasthttp.StatusBadRequest, "new passwords do not match")
			return
		}

		if err := authSvc.ChangeUserPassword(username, current, newPassword); err != nil {
			switch {
			case errors.Is(err, common.ErrUnauthorized):
				errResponse(ctx, fasthttp.StatusUnauthorized, "current password is incorrect")
			case errors.Is(err, common.ErrValidation):
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			default:
				log.Printf("change password failed for %s: %v", username, err)
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update password")
			}
			return
		}

		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// DeleteUserSelf deletes the logged-in user's record after password
// confirmation and ends the session.
func DeleteUserSelf(authSvc *auth.Service, sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username, ok := MustUsername(ctx)
		if !ok {
			return
		}
		password := string(ctx.PostArgs().Peek("password"))

		if err := authSvc.DeleteUser(username, password); err != nil {
			switch {
			case errors.Is(err, common.ErrUnauthorized):
				errResponse(ctx, fasthttp.StatusUnauthorized, "password verification failed")
			case errors.Is(err, common.ErrValidation):
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			default:
				log.Printf("delete user failed for %s: %v", username, err)
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete user")
			}
			return
		}

		sess.SwitchUser()
		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue("")
		c.SetPath("/")
		c.SetMaxAge(-1)
		ctx.Response.Header.SetCookie(&c)
		ctx.Redirect("/login", fasthttp.StatusSeeOther)
	}
}
