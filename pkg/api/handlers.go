package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/rubiojr/textboard/pkg/identity"
	"github.com/rubiojr/textboard/pkg/realtime"
	"github.com/rubiojr/textboard/pkg/search"
	"github.com/rubiojr/textboard/pkg/validate"
	"github.com/rubiojr/textboard/pkg/version"
)

// PreviewReplies is how many replies a board listing shows per thread.
const PreviewReplies = 5

const (
	msgThreadNotFound = "Thread not found"
	msgCreateFailed   = "Failed to create post. Please try again."
	msgLoadFailed     = "Failed to load threads. Please try again."
	msgQueryRequired  = "Search query is required"
	msgQueryTooShort  = "Search query must be at least 2 characters"
)

const minSearchQueryRunes = 2

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) HandleListThreads(w http.ResponseWriter, r *http.Request) {
	settings := s.currentSettings()
	page := queryInt(r, "page", 1)
	limit := min(queryInt(r, "limit", settings.ThreadsPerPage), settings.MaxPerPage)

	result, err := s.store.ListThreads(r.Context(), page, limit)
	if err != nil {
		logger.Errorf("listing threads: %v", err)
		s.writeError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}

	summaries := make([]ThreadSummary, 0, len(result.Threads))
	for i := range result.Threads {
		t := &result.Threads[i]
		omitted := t.OmittedReplies(PreviewReplies)
		t.Replies = t.PreviewReplies(PreviewReplies)
		summaries = append(summaries, ThreadSummary{Thread: *t, Omitted: omitted})
	}

	s.writeJSON(w, http.StatusOK, ThreadListResponse{
		Success:     true,
		Threads:     summaries,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		TotalCount:  result.TotalCount,
	})
}

func (s *Server) HandleGetThread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgThreadNotFound)
		return
	}

	thread, err := s.store.GetThreadWithReplies(r.Context(), id)
	if err != nil {
		logger.Errorf("getting thread %d: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, msgLoadFailed)
		return
	}
	if thread == nil {
		s.writeError(w, http.StatusNotFound, msgThreadNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, ThreadResponse{Success: true, Thread: thread})
}

func (s *Server) HandleCreateThread(w http.ResponseWriter, r *http.Request) {
	body, err := decodePost(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, deviceID, err := body.threadForm().Validate()
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	user, err := s.store.FindOrCreateUser(r.Context(), identity.UserAgent(r), identity.ClientIP(r), deviceID)
	if err != nil {
		logger.Errorf("resolving user: %v", err)
		s.writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	in.UserHash = user.Hash

	thread, err := s.store.CreateThread(r.Context(), in)
	if err != nil {
		logger.Errorf("creating thread: %v", err)
		s.writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	s.publish(realtime.ThreadCreated(thread))
	s.writeJSON(w, http.StatusCreated, ThreadResponse{Success: true, Thread: thread})
}

func (s *Server) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, msgThreadNotFound)
		return
	}

	body, err := decodePost(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, deviceID, err := body.replyForm(strconv.FormatInt(id, 10)).Validate()
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	subject, exists, err := s.store.ThreadSubject(r.Context(), id)
	if err != nil {
		logger.Errorf("checking thread %d: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, msgThreadNotFound)
		return
	}

	user, err := s.store.FindOrCreateUser(r.Context(), identity.UserAgent(r), identity.ClientIP(r), deviceID)
	if err != nil {
		logger.Errorf("resolving user: %v", err)
		s.writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	in.UserHash = user.Hash

	reply, err := s.store.CreateReply(r.Context(), in)
	if err != nil {
		logger.Errorf("creating reply in thread %d: %v", id, err)
		s.writeError(w, http.StatusInternalServerError, msgCreateFailed)
		return
	}

	s.publish(realtime.ReplyCreated(reply, subject))
	s.writeJSON(w, http.StatusCreated, ReplyResponse{Success: true, Reply: reply})
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	settings := s.currentSettings()
	values := r.URL.Query()
	params := search.ParseParams(values)

	if params.Query == "" {
		s.writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}
	if utf8.RuneCountInString(params.Query) < minSearchQueryRunes {
		s.writeError(w, http.StatusBadRequest, msgQueryTooShort)
		return
	}
	if !values.Has("limit") {
		params.Limit = settings.SearchPerPage
	}
	params.Limit = min(params.Limit, settings.MaxPerPage)

	res := s.searcher.Search(r.Context(), params.Query, params.Page, params.Limit)

	results := make([]SearchResult, 0, len(res.Results))
	for _, hit := range res.Results {
		results = append(results, SearchResult{
			Result:      hit,
			SnippetHTML: hit.Snippet.HTML(),
			Link:        hit.Link(),
		})
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		Success:     true,
		Results:     results,
		TotalCount:  res.TotalCount,
		CurrentPage: res.CurrentPage,
		TotalPages:  res.TotalPages,
		Query:       res.Query,
		Degraded:    res.Degraded,
	})
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logger.Errorf("getting stats: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	var fe validate.FieldErrors
	if errors.As(err, &fe) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fe.Error(), FieldErrors: fe})
		return
	}
	s.writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) publish(ev realtime.PostEvent) {
	if s.hub == nil {
		return
	}
	n := s.hub.Broadcast(ev)
	logger.Debugf("%s %d delivered to %d of %d listeners", ev.Kind, ev.ID, n, s.hub.Size())
}

// pathID parses the {id} path value as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt returns the positive integer query parameter name, or def.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}
