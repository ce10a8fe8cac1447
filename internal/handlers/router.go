package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/veil-waf/flowscan/internal/ratelimit"
)

// Routes groups the handlers mounted by NewRouter. Nil optional handlers
// leave their routes unmounted.
type Routes struct {
	UI        *UIHandler
	API       *APIHandler
	Stream    *StreamHandler
	Limiter   *ratelimit.Limiter
	WebSocket http.HandlerFunc
	Metrics   http.Handler
	StaticDir string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the chi router for every HTTP surface.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	if rt.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})

	r.Get("/", rt.UI.Index)
	r.With(rt.UI.RateLimit(rt.Limiter)).Post("/", rt.UI.Analyze)
	r.With(rt.Limiter.Middleware(ratelimit.Classify)).Post("/v1/classify", rt.API.Classify)

	r.Route("/api", func(api chi.Router) {
		api.Get("/samples", rt.API.Samples)
		api.Get("/models", rt.API.Models)
		api.Get("/history", rt.API.History)
		api.Get("/history/stats", rt.API.HistoryStats)
		if rt.Stream != nil {
			api.Get("/stream/events", rt.Stream.HandleSSE)
		}
	})

	if rt.WebSocket != nil {
		r.Get("/ws", rt.WebSocket)
	}
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics)
	}
	if rt.StaticDir != "" {
		if _, err := os.Stat(rt.StaticDir); err == nil {
			r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(rt.StaticDir))))
		}
	}
	return r
}

// corsMiddleware lets browser clients on other origins call the JSON API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
