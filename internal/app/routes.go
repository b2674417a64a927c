package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"rider.badgertransit.org/internal/middleware"
)

// Routes registers the API and wraps it with the Sentry, CORS and security
// header middlewares.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.notFound(w)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.errorResponse(w, http.StatusMethodNotAllowed, "method "+r.Method+" is not supported for this resource")
	})

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second, app.Logger))

	router.HandlerFunc(http.MethodGet, "/v1/stops/suggested", app.suggestedStopsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stops/recent", app.recentStopsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/stops/recent/:id", app.recordVisitHandler)

	router.HandlerFunc(http.MethodGet, "/v1/smartlaunch/rules", app.listRulesHandler)
	router.HandlerFunc(http.MethodPut, "/v1/smartlaunch/rules", app.replaceRulesHandler)
	router.HandlerFunc(http.MethodPost, "/v1/smartlaunch/rules", app.createRuleHandler)
	router.HandlerFunc(http.MethodPut, "/v1/smartlaunch/rules/:id", app.updateRuleHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/smartlaunch/rules/:id", app.deleteRuleHandler)
	router.HandlerFunc(http.MethodPost, "/v1/smartlaunch/rules/:id/toggle", app.toggleRuleHandler)

	router.HandlerFunc(http.MethodPost, "/v1/smartlaunch/launches", app.startLaunchHandler)
	router.HandlerFunc(http.MethodGet, "/v1/smartlaunch/launches/:id", app.launchStatusHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/smartlaunch/launches/:id", app.cancelLaunchHandler)

	handler := middleware.SentryMiddleware(app.Logger)(router)
	handler = middleware.CORS(app.Config.AllowedOrigin)(handler)
	return middleware.SecurityHeaders(handler)
}
