package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const maxRequestBytes = 32 << 20

type ingestRequest struct {
	Documents []models.Document `json:"documents"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&query); err != nil {
		s.respondError(w, semerr.Wrap(err, semerr.CodeServerRequestInvalid, "invalid request body"))
		return
	}
	if query.Limit <= 0 {
		query.Limit = s.defaultLimit
	}
	if s.maxLimit > 0 && query.Limit > s.maxLimit {
		query.Limit = s.maxLimit
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.respondError(w, semerr.Wrap(err, semerr.CodeServerRequestInvalid, "invalid request body"))
		return
	}
	s.logger.Debug("ingest request", zap.Int("documents", len(req.Documents)))
	report, err := s.indexer.Ingest(r.Context(), req.Documents)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.engine.Invalidate()
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.Status(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes err as {error, code} with the status its code maps to.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := semerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err), zap.String("code", string(semerr.CodeOf(err))))
	} else {
		s.logger.Debug("request rejected", zap.Error(err), zap.String("code", string(semerr.CodeOf(err))))
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error(), Code: string(semerr.CodeOf(err))})
}
