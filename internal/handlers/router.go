package handlers

import (
	"net/http"

	"github.com/jason-s-yu/blackjack/internal/middleware"
	"github.com/sirupsen/logrus"
)

// RouterConfig holds the cross-origin policy and optional rate limit for the blackjack endpoint.
type RouterConfig struct {
	AllowedOrigins []string
	AllowAnyOrigin bool
	Limiter        *middleware.RateLimiter
}

// NewRouter mounts the blackjack endpoint and the liveness probe behind logging and panic recovery.
func NewRouter(logger logrus.FieldLogger, engine Engine, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	var blackjack http.Handler = BlackjackHandler(logger, engine)
	if cfg.Limiter != nil {
		blackjack = cfg.Limiter.Middleware(blackjack)
	}
	blackjack = middleware.CORS(cfg.AllowedOrigins, cfg.AllowAnyOrigin)(blackjack)
	mux.Handle("/blackjack", blackjack)
	mux.Handle("/blackjack/", blackjack)
	mux.HandleFunc("/ping", PingHandler)

	return middleware.LogMiddleware(logger)(middleware.Recover(logger)(mux))
}

// PingHandler answers liveness checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}
