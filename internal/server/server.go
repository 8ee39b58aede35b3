// Package server exposes the dashboard over HTTP: a JSON API for the views and
// user actions, and a WebSocket stream of view changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"MarketDash/internal/dashboard"
	"MarketDash/internal/recorder"
)

// Server serves one dashboard session.
type Server struct {
	dash     *dashboard.Dashboard
	rec      recorder.Recorder
	origins  map[string]bool
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
	streams  sync.WaitGroup
}

// New creates a server. An empty origins list allows every origin. rec may be nil.
func New(dash *dashboard.Dashboard, rec recorder.Recorder, origins []string) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{
		dash:    dash,
		rec:     rec,
		origins: make(map[string]bool),
		quit:    make(chan struct{}),
	}
	for _, o := range origins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return s.allowOrigin(r.Header.Get("Origin")) != "" },
	}
	return s
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/markets/{kind}", s.handleMarket)
	mux.HandleFunc("POST /api/markets/{kind}/refresh", s.handleMarketRefresh)
	mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	mux.HandleFunc("PUT /api/favorites/{id}", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/favorites/{id}", s.handleRemoveFavorite)
	mux.HandleFunc("POST /api/favorites/{id}/toggle", s.handleToggleFavorite)
	mux.HandleFunc("GET /api/prefs", s.handlePrefs)
	mux.HandleFunc("PUT /api/prefs/currency", s.handleSetCurrency)
	mux.HandleFunc("POST /api/prefs/currency/toggle", s.handleToggleCurrency)
	mux.HandleFunc("GET /api/detail", s.handleDetail)
	mux.HandleFunc("PUT /api/detail", s.handleSelect)
	mux.HandleFunc("PUT /api/detail/window", s.handleSetWindow)
	mux.HandleFunc("POST /api/detail/refresh", s.handleDetailRefresh)
	mux.HandleFunc("DELETE /api/detail", s.handleClearDetail)
	mux.HandleFunc("GET /api/chart/{symbol}", s.handleChart)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("POST /api/news/refresh", s.handleNewsRefresh)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/notices", s.handleNotices)
	mux.HandleFunc("DELETE /api/notices/{id}", s.handleDismiss)
	mux.HandleFunc("GET /api/history/{id}", s.handleRecordedHistory)
	mux.HandleFunc("GET /api/stream", s.handleStream)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.corsMiddleware(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("[INFO] http server stopped")
	return nil
}

// Close ends every open stream and waits for them.
func (s *Server) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
	s.streams.Wait()
}

// allowOrigin returns the value for Access-Control-Allow-Origin, or "" when the
// origin is not allowed.
func (s *Server) allowOrigin(origin string) string {
	if len(s.origins) == 0 || s.origins["*"] {
		return "*"
	}
	if origin == "" {
		// same-origin and non-browser clients
		return "*"
	}
	if s.origins[origin] {
		return origin
	}
	return ""
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow := s.allowOrigin(r.Header.Get("Origin")); allow != "" {
			w.Header().Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
