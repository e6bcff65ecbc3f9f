package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/catalog"
	httpctx "github.com/TehSN/ocd-project/internal/http/ctx"
	"github.com/TehSN/ocd-project/internal/session"
	"github.com/TehSN/ocd-project/internal/state"
	ui "github.com/TehSN/ocd-project/web"
)

// LayoutData feeds the layout template and its per-view content blocks.
type LayoutData struct {
	Title      string
	ActivePage string
	Username   string
	IsDarkMode bool
	Degraded   bool

	Categories       []string
	ChartsByCategory map[string][]catalog.Chart
	WorkbenchCharts  []catalog.Chart
	Collections      []state.Collection
	ActiveCollection *state.Collection
	ActiveCharts     []catalog.Chart
	Editing          bool
	PendingChart     *catalog.Chart

	Error string
}

// MustUsername returns the session username from context, or sends 401
// and returns ("", false).
func MustUsername(ctx *fasthttp.RequestCtx) (string, bool) {
	u, ok := httpctx.UsernameFromCtx(ctx)
	if !ok || u == "" {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return "", false
	}
	return u, true
}

func renderLayout(ctx *fasthttp.RequestCtx, page string, data LayoutData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, page, data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// layoutFor assembles the template data for the session's current view.
func layoutFor(sess *session.Session, cat *catalog.Catalog, degraded bool) (string, LayoutData) {
	snap := sess.Snapshot()
	data := LayoutData{
		Username:         snap.Username,
		IsDarkMode:       snap.IsDarkMode,
		Degraded:         degraded,
		Categories:       cat.Categories,
		ChartsByCategory: cat.ByCategory(),
		WorkbenchCharts:  cat.Resolve(snap.WorkbenchItems),
		Collections:      snap.Collections,
		Editing:          snap.EditingCollectionID != "",
	}
	if snap.PendingChart != nil {
		if ch, ok := cat.Lookup(*snap.PendingChart); ok {
			data.PendingChart = &ch
		}
	}

	switch snap.View {
	case session.ViewWorkbench:
		data.Title, data.ActivePage = "Workbench", "workbench"
		return "workbench", data
	case session.ViewCollectionDetail:
		data.Title, data.ActivePage = "Collection", "collections"
		for i := range snap.Collections {
			if snap.Collections[i].ID == snap.ActiveCollectionID {
				data.ActiveCollection = &snap.Collections[i]
				data.ActiveCharts = cat.Resolve(snap.Collections[i].Charts)
				break
			}
		}
		return "collection", data
	case session.ViewCollectionsList:
		data.Title, data.ActivePage = "Collections", "collections"
		return "collections", data
	default:
		data.Title, data.ActivePage = "On Chain Dashboard", "home"
		return "home", data
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}
