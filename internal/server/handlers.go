package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hyperjump/mitsukeru/internal/models"
)

const defaultTable = "posts"

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "search query (q) is required")
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		table = defaultTable
	}
	req := models.SearchRequest{
		Query:   q,
		Table:   table,
		Page:    intQuery(r, "page"),
		PerPage: intQuery(r, "per_page"),
	}
	req.Normalize(s.config.Search.DefaultPerPage, s.config.Search.MaxPerPage)

	binding, ok := s.registry.Get(req.Table)
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown table: "+req.Table)
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("table", req.Table),
		zap.Int("page", req.Page),
		zap.Int("per_page", req.PerPage))

	startTime := time.Now()
	query, total, err := binding.Search(r.Context(), req.Query, req.Page, req.PerPage)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The demo schema has a single searchable entity, so rows scan into posts.
	var posts []*models.Post
	if err := query.Find(&posts).Error; err != nil {
		s.logger.Error("search query execution failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Query:     req.Query,
		Total:     total,
		Page:      req.Page,
		PerPage:   req.PerPage,
		Results:   posts,
		QueryTime: time.Since(startTime).Milliseconds(),
	})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var input models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	post := &models.Post{Body: input.Body}
	if err := s.db.WithContext(r.Context()).Create(post).Error; err != nil {
		s.logger.Error("create post failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.findPost(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.findPost(w, r)
	if !ok {
		return
	}
	var input models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	post.Body = input.Body
	if err := s.db.WithContext(r.Context()).Save(post).Error; err != nil {
		s.logger.Error("update post failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.findPost(w, r)
	if !ok {
		return
	}
	// Delete the loaded row so the index-sync callback sees the id.
	if err := s.db.WithContext(r.Context()).Delete(post).Error; err != nil {
		s.logger.Error("delete post failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Reindex(r.Context()); err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"tables": s.registry.Names(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type tableStatus struct {
		Rows    int64  `json:"rows"`
		Indexed uint64 `json:"indexed"`
	}
	status := make(map[string]tableStatus)
	for _, table := range s.registry.Names() {
		var rows int64
		if err := s.db.WithContext(r.Context()).Table(table).Count(&rows).Error; err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		indexed, err := s.idx.Count(table)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		status[table] = tableStatus{Rows: rows, Indexed: indexed}
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// findPost loads the post addressed by the {id} URL parameter, writing the
// error response itself when the id is bad or the row is missing.
func (s *Server) findPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := models.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	var post models.Post
	if err := s.db.WithContext(r.Context()).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondError(w, http.StatusNotFound, "post not found")
		} else {
			s.logger.Error("load post failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return &post, true
}

func intQuery(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
