package handlers

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

var (
	loginsTotal      *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	migrationsTotal  prometheus.Counter
)

func InitPrometheusMetrics() {
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocd",
			Name:      "logins_total",
			Help:      "Total number of login attempts by result.",
		},
		[]string{"result"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ocd",
			Name:      "transitions_total",
			Help:      "Total number of session state transitions by operation.",
		},
		[]string{"op"},
	)
	migrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ocd",
			Name:      "migrations_applied_total",
			Help:      "Total number of schema migration steps applied since start.",
		},
	)
	prometheus.MustRegister(loginsTotal, transitionsTotal, migrationsTotal)
}

// RecordMigrations adds to the migration counter; called once after the
// startup migration run.
func RecordMigrations(steps int) {
	if migrationsTotal != nil && steps > 0 {
		migrationsTotal.Add(float64(steps))
	}
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr())
	}
}
