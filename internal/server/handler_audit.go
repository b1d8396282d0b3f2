package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/docbatch/pkg/model"
)

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.audit == nil {
		respondError(w, reqID, http.StatusNotFound,
			&model.APIError{Code: model.ErrNotFound, Message: "audit trail is not enabled"})
		return
	}

	opts := model.DefaultListOptions()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.Limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			opts.Offset = n
		}
	}
	opts.Clamp()

	entries, total, err := s.audit.List(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	respondList(w, reqID, entries, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(entries) < total,
	})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.audit == nil {
		respondError(w, reqID, http.StatusNotFound,
			&model.APIError{Code: model.ErrNotFound, Message: "audit trail is not enabled"})
		return
	}

	id := chi.URLParam(r, "id")
	entries, err := s.audit.GetByOperation(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if len(entries) == 0 {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("audit entry", id))
		return
	}
	respondOK(w, reqID, entries)
}
