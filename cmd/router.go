package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/azure-vote/config"
	"github.com/angeloszaimis/azure-vote/internal/handler"
	"github.com/angeloszaimis/azure-vote/internal/healthcheck"
	"github.com/angeloszaimis/azure-vote/internal/metrics"
	"github.com/angeloszaimis/azure-vote/internal/view"
)

func setupRouter(
	log *slog.Logger,
	session config.SessionConfig,
	voteHandler *handler.VoteHandler,
	metricsCollector *metrics.Collector,
	monitor *healthcheck.Monitor,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(handler.RequestID(log))
	r.Use(handler.SecurityHeaders)
	r.Use(handler.AccessLog(log, metricsCollector))

	r.Group(func(r chi.Router) {
		r.Use(handler.MarkPlaintext)
		r.Use(handler.CSRF(session.CSRFKey, session.SecureCookie, log))

		r.Get("/", voteHandler.Index)
		r.Post("/", voteHandler.Vote)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", view.Static()))
	r.Get("/metrics", metricsCollector.Handler())
	r.Get("/healthz", monitor.Handler())

	return r
}
