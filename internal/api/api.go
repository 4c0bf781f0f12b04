package api

import (
	"context"
	"net/http"
	"time"

	"github.com/DMarby/stockphotos/internal/handler"
	"github.com/DMarby/stockphotos/internal/health"
	"github.com/DMarby/stockphotos/internal/imagelookup"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/stockphoto"
	"github.com/DMarby/stockphotos/internal/tracing"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Lookup looks up stock photos and categories
type Lookup interface {
	Images(ctx context.Context, label string) []imagelookup.Image
	Resolve(ctx context.Context, label string) (string, error)
	ProviderCategories(ctx context.Context) (map[string]stockphoto.Category, error)
}

// API is a http api
type API struct {
	Lookup         Lookup
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET")

	// Images for a site category or provider category id, shuffled
	router.Handle("/v1/images/{category}", handler.Handler(a.imagesHandler)).Methods("GET")

	// Provider categories
	router.Handle("/v1/categories", handler.Handler(a.categoriesHandler)).Methods("GET")
	router.Handle("/v1/categories/{category}", handler.Handler(a.categoryHandler)).Methods("GET")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}
	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
		ExposedHeaders: []string{handler.RequestIDHeader},
	})

	// Set up handlers for tracing, adding a request id, handling panics, metrics, request logging, setting CORS headers, and handler execution timeout
	return handler.Tracer(a.Tracer,
		handler.AddRequestID(
			handler.Recovery(a.Log,
				handler.Metrics(
					handler.Logger(a.Log,
						corsHandler.Handler(
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
						),
					),
					routeMatcher,
				),
			),
		),
		routeMatcher,
	)
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}
