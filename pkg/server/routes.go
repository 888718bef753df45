package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/ollama-chat/pkg/handlers"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// SetupRoutes adds all routes that the server should listen to
func SetupRoutes(srv *Server, db handlers.Pinger, deps handlers.Dependencies) {
	mux := srv.Mux()
	ch := handlers.NewChecksHandler(db)

	mux.Mount("/checks", ch.Routes())
	mux.Mount("/metrics", promhttp.Handler())

	// event sockets hijack the connection, so request logging wraps the
	// request/response routes only
	limits := append([]func(http.Handler) http.Handler{RequestLogger()}, srv.Limits()...)
	mux.Route(config.APIPrefixV1, func(r chi.Router) {
		handlers.RegisterRoutes(r, deps, limits...)
	})

	// Displays all API paths in when debug enabled
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		logging.LogDebugf("%s %s\n", method, route)
		return nil
	}
	if err := chi.Walk(mux, walkFunc); err != nil {
		logging.LogErrorf(err, "logging error")
	}
}
