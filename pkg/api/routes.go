package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.HandleHealth)

	// Board
	mux.HandleFunc("GET /api/threads", s.HandleListThreads)
	mux.HandleFunc("POST /api/threads", s.HandleCreateThread)
	mux.HandleFunc("GET /api/threads/{id}", s.HandleGetThread)
	mux.HandleFunc("POST /api/threads/{id}/replies", s.HandleCreateReply)
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET "+liveRoute, s.HandleLive)
	mux.HandleFunc("GET /sitemap.xml", s.HandleSitemap)

	// Admin
	mux.HandleFunc("GET /api/admin/threads", s.requireAdmin(s.HandleAdminListThreads))
	mux.HandleFunc("POST /api/admin/threads", s.requireAdmin(s.HandleAdminCreateThread))
	mux.HandleFunc("GET /api/admin/threads/{id}", s.requireAdmin(s.HandleAdminGetThread))
	mux.HandleFunc("PUT /api/admin/threads/{id}", s.requireAdmin(s.HandleAdminUpdateThread))
	mux.HandleFunc("DELETE /api/admin/threads/{id}", s.requireAdmin(s.HandleAdminDeleteThread))
	mux.HandleFunc("GET /api/admin/replies", s.requireAdmin(s.HandleAdminListReplies))
	mux.HandleFunc("POST /api/admin/replies", s.requireAdmin(s.HandleAdminCreateReply))
	mux.HandleFunc("GET /api/admin/replies/{id}", s.requireAdmin(s.HandleAdminGetReply))
	mux.HandleFunc("PUT /api/admin/replies/{id}", s.requireAdmin(s.HandleAdminUpdateReply))
	mux.HandleFunc("DELETE /api/admin/replies/{id}", s.requireAdmin(s.HandleAdminDeleteReply))
}
