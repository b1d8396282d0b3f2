package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/docbatch/internal/queue"
	"github.com/me/docbatch/pkg/model"
)

func validateRequest(req model.OperationRequest) *model.APIError {
	if req.Handler == "" {
		return model.NewValidationError("handler is required")
	}
	if req.Method == "" {
		return model.NewValidationError("method is required")
	}
	switch req.Type {
	case model.TypeSpreadsheet, model.TypePresentation, model.TypeTextDocument:
	case "":
		return model.NewValidationError("type is required")
	default:
		return model.NewValidationError("unknown operation type: " + string(req.Type))
	}
	return nil
}

func (s *Server) handleSubmitOperation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}
	if apiErr := validateRequest(req); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	id, err := s.queue.Add(req)
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			respondError(w, reqID, http.StatusConflict,
				&model.APIError{Code: model.ErrConflict, Message: "queue is shut down"})
			return
		}
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	op, err := s.queue.Status(id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondCreated(w, reqID, op)
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Operations []model.OperationRequest `json:"operations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid JSON body: "+err.Error()))
		return
	}
	if len(req.Operations) == 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("operations must not be empty"))
		return
	}
	for i, op := range req.Operations {
		if apiErr := validateRequest(op); apiErr != nil {
			apiErr.Message = fmt.Sprintf("operation %d: %s", i, apiErr.Message)
			respondError(w, reqID, http.StatusBadRequest, apiErr)
			return
		}
	}

	ids, err := s.queue.AddBatch(req.Operations)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("batch submitted", "operations", len(ids))
	respondCreated(w, reqID, map[string]any{"ids": ids})
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	op, err := s.queue.Status(id)
	if err != nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("operation", id))
		return
	}
	respondOK(w, reqID, op)
}

// handleWaitOperation blocks until the operation settles or the timeout
// expires. The timeout query parameter is in seconds; zero or absent
// means wait until the client disconnects.
func (s *Server) handleWaitOperation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var timeout time.Duration
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw + "s")
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest,
				model.NewValidationError("timeout must be a number of seconds"))
			return
		}
		timeout = d
	}

	op, err := s.queue.Wait(r.Context(), id, timeout)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrNotFound):
			respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("operation", id))
		case errors.Is(err, queue.ErrTimeout):
			respondError(w, reqID, http.StatusRequestTimeout, model.NewTimeoutError(id))
		default:
			respondError(w, reqID, http.StatusInternalServerError,
				&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		}
		return
	}
	respondOK(w, reqID, op)
}

func (s *Server) handleCancelOperation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if !s.queue.Cancel(id) {
		// Either unknown or already terminal; tell the caller which.
		if _, err := s.queue.Status(id); err != nil {
			respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("operation", id))
			return
		}
		respondError(w, reqID, http.StatusConflict,
			&model.APIError{Code: model.ErrConflict, Message: "operation already finished"})
		return
	}

	op, _ := s.queue.Status(id)
	respondOK(w, reqID, op)
}
