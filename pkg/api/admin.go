package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rubiojr/textboard/pkg/realtime"
	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/rubiojr/textboard/pkg/validate"
)

const (
	adminDefaultLimit = 20
	msgUnauthorized   = "Unauthorized"
	msgNotFound       = "Not Found"
	msgAdminFailed    = "Operation failed"
)

// requireAdmin wraps h with bearer token authentication. Every request is
// rejected while no admin token is configured.
func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.currentSettings().AdminToken
		scheme, value, _ := strings.Cut(r.Header.Get("Authorization"), " ")
		if token == "" || scheme != "Bearer" ||
			subtle.ConstantTimeCompare([]byte(value), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		h(w, r)
	}
}

// adminPage reads page and limit, capping limit at maxPerPage.
func adminPage(r *http.Request, maxPerPage int) (page, limit int) {
	page, limit = 1, min(adminDefaultLimit, maxPerPage)
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPerPage)
	}
	return page, limit
}

// writeAdminError maps storage and validation failures to responses.
func (s *Server) writeAdminError(w http.ResponseWriter, op string, err error) {
	var fe validate.FieldErrors
	switch {
	case errors.As(err, &fe):
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fe.Error(), FieldErrors: fe})
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, errBadBody):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("admin %s: %v", op, err)
		s.writeError(w, http.StatusInternalServerError, msgAdminFailed)
	}
}

func (s *Server) HandleAdminListThreads(w http.ResponseWriter, r *http.Request) {
	page, limit := adminPage(r, s.currentSettings().MaxPerPage)
	threads, err := s.store.ListThreads(r.Context(), page, limit)
	if err != nil {
		s.writeAdminError(w, "list threads", err)
		return
	}
	s.writeJSON(w, http.StatusOK, AdminThreadsResponse{Success: true, ThreadPage: threads})
}

func (s *Server) HandleAdminCreateThread(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body adminPost
	if err := decodeJSON(r.Body, &body); err != nil {
		s.writeAdminError(w, "create thread", err)
		return
	}

	form := validate.ThreadForm{Subject: body.Subject, Content: body.Content, ImageFields: body.imageFields()}
	in, _, err := form.Validate()
	if err != nil {
		s.writeAdminError(w, "create thread", err)
		return
	}
	in.UserHash = body.userHash()

	thread, err := s.store.CreateThread(r.Context(), in)
	if err != nil {
		s.writeAdminError(w, "create thread", err)
		return
	}
	s.publish(realtime.ThreadCreated(thread))
	s.writeJSON(w, http.StatusOK, ThreadResponse{Success: true, Thread: thread})
}

func (s *Server) HandleAdminGetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	thread, err := s.store.GetThreadWithReplies(r.Context(), id)
	if err != nil {
		s.writeAdminError(w, "get thread", err)
		return
	}
	if thread == nil {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, ThreadResponse{Success: true, Thread: thread})
}

func (s *Server) HandleAdminUpdateThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var patch validate.ThreadPatch
	if err := decodeJSON(r.Body, &patch); err != nil {
		s.writeAdminError(w, "update thread", err)
		return
	}
	upd, err := patch.Validate()
	if err != nil {
		s.writeAdminError(w, "update thread", err)
		return
	}

	thread, err := s.store.UpdateThread(r.Context(), id, upd)
	if err != nil {
		s.writeAdminError(w, "update thread", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ThreadResponse{Success: true, Thread: thread})
}

func (s *Server) HandleAdminDeleteThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.store.DeleteThread(r.Context(), id); err != nil {
		s.writeAdminError(w, "delete thread", err)
		return
	}
	logger.Infof("admin deleted thread %d", id)
	s.writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) HandleAdminListReplies(w http.ResponseWriter, r *http.Request) {
	page, limit := adminPage(r, s.currentSettings().MaxPerPage)
	replies, err := s.store.ListReplies(r.Context(), page, limit)
	if err != nil {
		s.writeAdminError(w, "list replies", err)
		return
	}
	s.writeJSON(w, http.StatusOK, AdminRepliesResponse{Success: true, ReplyPage: replies})
}

func (s *Server) HandleAdminCreateReply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body adminPost
	if err := decodeJSON(r.Body, &body); err != nil {
		s.writeAdminError(w, "create reply", err)
		return
	}

	form := validate.ReplyForm{
		ThreadID:    strconv.FormatInt(body.ThreadID, 10),
		Content:     body.Content,
		ImageFields: body.imageFields(),
	}
	in, _, err := form.Validate()
	if err != nil {
		s.writeAdminError(w, "create reply", err)
		return
	}
	in.UserHash = body.userHash()

	subject, exists, err := s.store.ThreadSubject(r.Context(), in.ThreadID)
	if err != nil {
		s.writeAdminError(w, "create reply", err)
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	reply, err := s.store.CreateReply(r.Context(), in)
	if err != nil {
		s.writeAdminError(w, "create reply", err)
		return
	}
	s.publish(realtime.ReplyCreated(reply, subject))
	s.writeJSON(w, http.StatusOK, ReplyResponse{Success: true, Reply: reply})
}

func (s *Server) HandleAdminGetReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	reply, err := s.store.GetReply(r.Context(), id)
	if err != nil {
		s.writeAdminError(w, "get reply", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ReplyResponse{Success: true, Reply: reply})
}

func (s *Server) HandleAdminUpdateReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var patch validate.ReplyPatch
	if err := decodeJSON(r.Body, &patch); err != nil {
		s.writeAdminError(w, "update reply", err)
		return
	}
	upd, err := patch.Validate()
	if err != nil {
		s.writeAdminError(w, "update reply", err)
		return
	}

	reply, err := s.store.UpdateReply(r.Context(), id, upd)
	if err != nil {
		s.writeAdminError(w, "update reply", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ReplyResponse{Success: true, Reply: reply})
}

func (s *Server) HandleAdminDeleteReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := s.store.DeleteReply(r.Context(), id); err != nil {
		s.writeAdminError(w, "delete reply", err)
		return
	}
	logger.Infof("admin deleted reply %d", id)
	s.writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
