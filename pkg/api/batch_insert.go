package api

import (
	"fmt"
	"net/http"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// MaxBatchSize is the largest number of objects accepted by one batch insert
const MaxBatchSize = 1000

// BatchInsertRequest represents the request body for batch insert operations
type BatchInsertRequest struct {
	Objects []domain.Document `json:"objects"`
}

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	InsertedCount int               `json:"inserted_count"`
	Class         string            `json:"class"`
	Objects       []domain.Document `json:"objects"`
}

// HandleBatchInsert handles POST requests creating several objects in one
// backend batch
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req BatchInsertRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.log.Error("decoding body failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Objects) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No objects provided")
		return
	}
	if len(req.Objects) > MaxBatchSize {
		h.log.Warn("batch too large", "class", c.repo.ClassName(), "size", len(req.Objects))
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d objects allowed per batch", MaxBatchSize))
		return
	}

	records, err := c.repo.CreateMany(c.ctx, req.Objects, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	h.log.Info("batch insert completed", "class", c.repo.ClassName(), "inserted", len(records))
	writeJSON(w, http.StatusCreated, BatchInsertResponse{
		Success:       true,
		Message:       "Batch insert completed successfully",
		InsertedCount: len(records),
		Class:         c.repo.ClassName(),
		Objects:       visibleAll(c.repo, records),
	})
}
