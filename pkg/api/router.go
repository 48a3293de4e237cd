package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Mindburn-Labs/screenpilot/pkg/auth"
)

const (
	PathPredict      = "/api/browser-automation/predict"
	PathPredictAlias = "/api/predict"
	PathMe           = "/api/users/me"
	PathHealth       = "/health"
)

// Options configures NewRouter.
type Options struct {
	Predictor    Predictor
	Gate         *auth.Gate
	Logger       *slog.Logger
	Version      string
	CORSOrigins  []string
	MaxBodyBytes int64

	// PredictRequireAuth puts the gate in front of predict. PredictResource,
	// when set, implies it and also requires a grant for that resource.
	PredictRequireAuth bool
	PredictResource    string
}

// NewRouter builds the HTTP handler. CORS and request ids wrap the router so
// preflight requests are answered before route matching.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "api")
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	h := &Handlers{
		predictor:    opts.Predictor,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logger,
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { WriteNotFound(w) })
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { WriteMethodNotAllowed(w) })
	router.Use(mux.MiddlewareFunc(RecoveryMiddleware(logger)))
	router.Use(mux.MiddlewareFunc(LoggingMiddleware(logger)))

	var endpoints []Endpoint
	route := func(path, method, desc string, authed bool, handler http.Handler) {
		router.Handle(path, handler).Methods(method)
		endpoints = append(endpoints, Endpoint{Path: path, Method: method, Description: desc, RequiresAuth: authed})
	}

	requireAuth := RequireAuth(opts.Gate, logger)

	predictHandler := http.Handler(http.HandlerFunc(h.HandlePredict))
	if opts.PredictResource != "" {
		predictHandler = RequirePermission(opts.Gate, opts.PredictResource, logger)(predictHandler)
	}
	if opts.PredictRequireAuth || opts.PredictResource != "" {
		predictHandler = requireAuth(predictHandler)
	}
	predictAuthed := opts.PredictRequireAuth || opts.PredictResource != ""

	route("/", http.MethodGet, "API index", false, http.HandlerFunc(h.HandleIndex))
	route("/api", http.MethodGet, "API index", false, http.HandlerFunc(h.HandleIndex))
	route(PathHealth, http.MethodGet, "Liveness probe", false, http.HandlerFunc(h.HandleHealth))
	route(PathMe, http.MethodGet, "Current user", true, requireAuth(http.HandlerFunc(h.HandleMe)))
	route(PathPredict, http.MethodPost, "Predict the next UI action from a screenshot and a goal", predictAuthed, predictHandler)
	route(PathPredictAlias, http.MethodPost, "Alias of "+PathPredict, predictAuthed, predictHandler)

	h.index = Index{
		Name:        "screenpilot",
		Version:     version,
		Description: "Screenshot and goal in, next UI action out",
		Endpoints:   endpoints,
	}

	return auth.CORSMiddleware(opts.CORSOrigins)(auth.RequestIDMiddleware(router))
}
