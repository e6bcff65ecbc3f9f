package middleware

import (
	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/auth"
	httpctx "github.com/TehSN/ocd-project/internal/http/ctx"
	"github.com/TehSN/ocd-project/internal/session"
)

// RequireUser returns middleware that resolves the session cookie to the
// logged-in user and sets the username on the request context. Requests
// without a valid session are redirected to the user-selection screen.
func RequireUser(sess *session.Session, authSvc *auth.Service) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			cookie := ctx.Request.Header.Cookie("session_user")
			if len(cookie) == 0 {
				ctx.Redirect("/login", fasthttp.StatusSeeOther)
				return
			}
			username := string(cookie)

			// The dashboard is single-session: the cookie must match the
			// machine's current user and that user must still exist.
			if username != sess.CurrentUser() || !authSvc.UserExists(username) {
				ctx.Redirect("/login", fasthttp.StatusSeeOther)
				return
			}

			httpctx.SetUsername(ctx, username)
			next(ctx)
		}
	}
}
