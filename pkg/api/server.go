// Package api serves the textboard JSON API: the board, posting, search,
// the live post feed, the admin endpoints and the sitemap.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rubiojr/textboard/pkg/log"
	"github.com/rubiojr/textboard/pkg/realtime"
	"github.com/rubiojr/textboard/pkg/search"
	"github.com/rubiojr/textboard/pkg/storage"
)

var logger = log.ForService("api")

// Settings are the runtime options a server can pick up without restarting.
type Settings struct {
	// AdminToken enables the admin API when non-empty.
	AdminToken     string
	ThreadsPerPage int
	SearchPerPage  int
	MaxPerPage     int
	// BaseURL prefixes sitemap locations, e.g. https://board.example.com.
	BaseURL string
}

type Server struct {
	store    *storage.Store
	searcher *search.Service
	hub      *realtime.Hub

	mu       sync.RWMutex
	settings Settings
}

func NewServer(store *storage.Store, searcher *search.Service, settings Settings) *Server {
	s := &Server{store: store, searcher: searcher}
	s.UpdateSettings(settings)
	return s
}

// SetHub enables live post events. Without a hub new posts are not
// broadcast and /api/live is unavailable.
func (s *Server) SetHub(hub *realtime.Hub) {
	s.hub = hub
}

// UpdateSettings swaps the runtime settings, filling zero page sizes with
// defaults.
func (s *Server) UpdateSettings(settings Settings) {
	if settings.ThreadsPerPage <= 0 {
		settings.ThreadsPerPage = 10
	}
	if settings.SearchPerPage <= 0 {
		settings.SearchPerPage = search.DefaultPerPage
	}
	if settings.MaxPerPage <= 0 {
		settings.MaxPerPage = search.MaxPerPage
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *Server) currentSettings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestLogMiddleware(CorsMiddleware(CompressMiddleware(mux, liveRoute)))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
