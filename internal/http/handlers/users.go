package handlers

import (
	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/auth"
	"github.com/TehSN/ocd-project/internal/migrate"
	"github.com/TehSN/ocd-project/internal/session"
	"github.com/TehSN/ocd-project/internal/store"
)

// RosterList returns the fixed roster with per-user status, for the
// user-selection screen.
func RosterList(authSvc *auth.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, authSvc.ListRoster())
	}
}

// Statusz reports storage availability and blob stats.
func Statusz(st *store.Store, degraded bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		info := st.StorageInfo()
		jsonResponse(ctx, map[string]any{
			"schemaVersion": migrate.Latest(),
			"degraded":      degraded,
			"storage":       info,
		})
	}
}

// ResetData wipes the namespaced state blob entirely and ends the
// session. Destructive; the operational reset tool posts here.
func ResetData(st *store.Store, sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		sess.SwitchUser()
		if !st.ClearAll() {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to clear data")
			return
		}
		var c fasthttp.Cookie
		c.SetKey("session_user")
		c.SetValue("")
		c.SetPath("/")
		c.SetMaxAge(-1)
		ctx.Response.Header.SetCookie(&c)
		jsonResponse(ctx, map[string]any{"cleared": true})
	}
}
