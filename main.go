package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"github.com/TehSN/ocd-project/internal/auth"
	"github.com/TehSN/ocd-project/internal/catalog"
	"github.com/TehSN/ocd-project/internal/config"
	"github.com/TehSN/ocd-project/internal/http/handlers"
	appmw "github.com/TehSN/ocd-project/internal/http/middleware"
	"github.com/TehSN/ocd-project/internal/migrate"
	"github.com/TehSN/ocd-project/internal/session"
	"github.com/TehSN/ocd-project/internal/store"
	ui "github.com/TehSN/ocd-project/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Postgres is the durable home for the state blob. When it is not
	// reachable the server still comes up on an in-memory blob so the
	// dashboard stays usable; the UI shows a data-loss warning.
	var blob store.Blob
	degraded := false
	if db, err := store.Connect(cfg); err != nil {
		log.Printf("warning: database unavailable, running with in-memory state: %v", err)
		blob = store.NewMemoryBlob()
		degraded = true
	} else {
		blob = store.NewGormBlob(db)
	}

	st := store.New(blob, cfg.StateNamespace)
	if !st.IsAvailable() {
		if !degraded {
			log.Printf("warning: storage probe failed, running with in-memory state")
			st = store.New(store.NewMemoryBlob(), cfg.StateNamespace)
			degraded = true
		}
	}

	handlers.InitPrometheusMetrics()

	if applied := migrate.Run(st); applied > 0 {
		log.Printf("state migrated: %d step(s), now at schema %s", applied, migrate.Latest())
		handlers.RecordMigrations(applied)
	}

	cat := catalog.Load()
	authSvc := auth.New(st, cfg)
	sess := session.New(st, cat, cfg)
	sess.Start()

	r := router.New()
	requireUser := appmw.RequireUser(sess, authSvc)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/login", handlers.LoginForm(authSvc, degraded))
	r.POST("/login", handlers.LoginSubmit(authSvc, sess, degraded))
	r.POST("/logout", handlers.Logout(sess))

	r.GET("/", requireUser(handlers.Dashboard(sess, cat, degraded)))
	r.GET("/home", requireUser(handlers.NavigateHome(sess)))
	r.GET("/workbench", requireUser(handlers.NavigateWorkbench(sess)))
	r.GET("/collections", requireUser(handlers.NavigateCollections(sess)))
	r.GET("/collections/{id}", requireUser(handlers.OpenCollectionPage(sess)))

	r.POST("/settings/password", requireUser(handlers.ChangePasswordSelf(authSvc)))
	r.POST("/settings/delete", requireUser(handlers.DeleteUserSelf(authSvc, sess)))

	r.GET("/v1/state", requireUser(handlers.State(sess)))
	r.GET("/v1/users", handlers.RosterList(authSvc))

	r.POST("/v1/workbench/enlarge", requireUser(handlers.EnlargeChart(sess)))
	r.POST("/v1/workbench/enlarge/resolve", requireUser(handlers.ResolveEnlarge(sess)))
	r.POST("/v1/workbench/close", requireUser(handlers.CloseChart(sess)))
	r.POST("/v1/workbench/close-all", requireUser(handlers.CloseAllCharts(sess)))
	r.POST("/v1/workbench/reorder", requireUser(handlers.ReorderWorkbench(sess)))

	r.POST("/v1/collections/save", requireUser(handlers.SaveCollection(sess)))
	r.POST("/v1/collections/edit", requireUser(handlers.EditCollection(sess)))
	r.POST("/v1/collections/rename", requireUser(handlers.RenameCollection(sess)))
	r.POST("/v1/collections/delete", requireUser(handlers.DeleteCollection(sess)))
	r.POST("/v1/collections/add-chart", requireUser(handlers.AddChartToCollection(sess)))
	r.POST("/v1/collections/create-with-chart", requireUser(handlers.CreateCollectionWithChart(sess)))

	r.POST("/v1/theme/toggle", requireUser(handlers.ToggleTheme(sess)))

	r.GET("/statusz", handlers.Statusz(st, degraded))
	r.GET("/metricsz", handlers.PrometheusExport())
	r.POST("/admin/reset", requireUser(handlers.ResetData(st, sess)))

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("dashboard listening on %s (degraded=%v)", cfg.ListenAddr, degraded)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
