package handlers

import (
	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/catalog"
	"github.com/TehSN/ocd-project/internal/session"
)

// Dashboard renders whichever view the session is currently in. The
// server renders plain state; all transitions go through the /v1
// endpoints or the navigation routes below.
func Dashboard(sess *session.Session, cat *catalog.Catalog, degraded bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		page, data := layoutFor(sess, cat, degraded)
		renderLayout(ctx, page, data)
	}
}

// NavigateHome, NavigateWorkbench and NavigateCollections switch views
// and bounce back to the dashboard.
func NavigateHome(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		sess.NavigateHome()
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

func NavigateWorkbench(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		sess.NavigateWorkbench()
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

func NavigateCollections(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		sess.NavigateCollections()
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// OpenCollectionPage opens a collection's detail view by id.
func OpenCollectionPage(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		if id, ok := ctx.UserValue("id").(string); ok {
			sess.OpenCollection(id)
		}
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}
