package server

import (
	"encoding/json"
	"net/http"

	"github.com/me/docbatch/internal/executor"
	"github.com/me/docbatch/internal/optimizer"
	"github.com/me/docbatch/pkg/model"
)

type sheetOptimizeRequest struct {
	Operations []optimizer.SheetOp `json:"operations"`
	Execute    bool                `json:"execute"`
	Target     string              `json:"target"`
}

type slideOptimizeRequest struct {
	Operations []optimizer.SlideOp `json:"operations"`
	Chunk      int                 `json:"chunk"`
	Execute    bool                `json:"execute"`
	Target     string              `json:"target"`
}

// handleOptimizeSheet groups buffered spreadsheet operations into
// batches. With execute=true the batches also run against the named
// target document and the per-descriptor outcomes come back alongside
// the plan.
func (s *Server) handleOptimizeSheet(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req sheetOptimizeRequest
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

	o := optimizer.NewSheet()
	for _, op := range req.Operations {
		o.AddOp(op)
	}
	batches := o.Optimize()
	stats := o.Stats()

	data := map[string]any{
		"batches": batches,
		"stats":   stats,
	}

	if req.Execute {
		target, apiErr := s.resolveTarget(req.Target)
		if apiErr != nil {
			respondError(w, reqID, http.StatusBadRequest, apiErr)
			return
		}
		results := make([]executor.BatchResult, 0, len(batches))
		for _, batch := range batches {
			results = append(results, executor.ExecuteSheetBatch(r.Context(), batch, target))
		}
		data["results"] = results
		s.logger.Info("sheet batches executed", "target", req.Target, "batches", len(batches))
	}

	respondOK(w, reqID, data)
}

func (s *Server) handleOptimizeSlides(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req slideOptimizeRequest
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

	chunk := req.Chunk
	if chunk <= 0 {
		chunk = s.config.ShapeChunk
	}
	o := optimizer.NewSlides(chunk)
	for _, op := range req.Operations {
		o.AddOp(op)
	}
	batches := o.Optimize()
	stats := o.Stats()

	data := map[string]any{
		"batches": batches,
		"stats":   stats,
	}

	if req.Execute {
		target, apiErr := s.resolveTarget(req.Target)
		if apiErr != nil {
			respondError(w, reqID, http.StatusBadRequest, apiErr)
			return
		}
		results := make([]executor.BatchResult, 0, len(batches))
		for _, batch := range batches {
			results = append(results, executor.ExecuteSlideBatch(r.Context(), batch, target))
		}
		data["results"] = results
		s.logger.Info("slide batches executed", "target", req.Target, "batches", len(batches))
	}

	respondOK(w, reqID, data)
}

func (s *Server) resolveTarget(name string) (any, *model.APIError) {
	if name == "" {
		return nil, model.NewValidationError("target is required when execute is set")
	}
	target, ok := s.targets[name]
	if !ok {
		return nil, model.NewValidationError("unknown target: " + name)
	}
	return target, nil
}
