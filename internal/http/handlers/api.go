package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/common"
	"github.com/TehSN/ocd-project/internal/session"
)

// The /v1 endpoints are the UI layer's transition surface: each one maps
// a user action onto a single state-machine operation and returns the new
// snapshot, so the client can re-render without deriving state locally.

func apiError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		errResponse(ctx, fasthttp.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
	default:
		errResponse(ctx, fasthttp.StatusInternalServerError, "internal error")
	}
}

func decodeBody(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// State returns the current session snapshot.
func State(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		jsonResponse(ctx, sess.Snapshot())
	}
}

// EnlargeChart opens a chart. The response outcome is either "opened" or
// "choice"; the latter means the client must prompt Add vs Replace and
// call ResolveEnlarge.
func EnlargeChart(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ChartID int `json:"chartId"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		outcome, err := sess.EnlargeChart(req.ChartID)
		if err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("enlarge").Inc()
		jsonResponse(ctx, map[string]any{"outcome": outcome, "state": sess.Snapshot()})
	}
}

// ResolveEnlarge applies the pending Add/Replace decision.
func ResolveEnlarge(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			Replace bool `json:"replace"`
			Cancel  bool `json:"cancel"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		if req.Cancel {
			sess.CancelEnlargeChoice()
			jsonResponse(ctx, sess.Snapshot())
			return
		}
		if err := sess.ResolveEnlargeChoice(req.Replace); err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("enlarge_resolve").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func CloseChart(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ChartID int `json:"chartId"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		sess.CloseChart(req.ChartID)
		transitionsTotal.WithLabelValues("close").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func CloseAllCharts(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		sess.CloseAllCharts()
		transitionsTotal.WithLabelValues("close_all").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

// ReorderWorkbench replaces the workbench order; the new order must be a
// permutation of the current one.
func ReorderWorkbench(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			Order []int `json:"order"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		if err := sess.ReorderWorkbench(req.Order); err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("reorder").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

// SaveCollection saves the workbench as a collection (new, or in place
// when a collection is being edited).
func SaveCollection(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		id, err := sess.SaveCollection(req.Name)
		if err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("save_collection").Inc()
		jsonResponse(ctx, map[string]any{"id": id, "state": sess.Snapshot()})
	}
}

func EditCollection(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ID string `json:"id"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		if err := sess.EditCollection(req.ID); err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("edit_collection").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func RenameCollection(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		if err := sess.RenameCollection(req.ID, req.Name); err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("rename_collection").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func DeleteCollection(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ID string `json:"id"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		sess.DeleteCollection(req.ID)
		transitionsTotal.WithLabelValues("delete_collection").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func AddChartToCollection(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ChartID      int    `json:"chartId"`
			CollectionID string `json:"collectionId"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		if err := sess.AddChartToCollection(req.ChartID, req.CollectionID); err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("add_to_collection").Inc()
		jsonResponse(ctx, sess.Snapshot())
	}
}

func CreateCollectionWithChart(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		var req struct {
			ChartID int    `json:"chartId"`
			Name    string `json:"name"`
		}
		if !decodeBody(ctx, &req) {
			return
		}
		id, err := sess.CreateCollectionWithChart(req.ChartID, req.Name)
		if err != nil {
			apiError(ctx, err)
			return
		}
		transitionsTotal.WithLabelValues("create_collection").Inc()
		jsonResponse(ctx, map[string]any{"id": id, "state": sess.Snapshot()})
	}
}

func ToggleTheme(sess *session.Session) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUsername(ctx); !ok {
			return
		}
		dark := sess.ToggleTheme()
		transitionsTotal.WithLabelValues("toggle_theme").Inc()
		jsonResponse(ctx, map[string]any{"isDarkMode": dark})
	}
}
