package api

import (
	"net/http"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// HandleInsert handles POST requests creating one object
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}

	var doc domain.Document
	if err := decodeBody(w, r, &doc); err != nil {
		h.log.Error("decoding body failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := c.repo.Create(c.ctx, doc, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	h.log.Info("object created", "class", c.repo.ClassName(), "objectId", rec.ID())
	writeJSON(w, http.StatusCreated, c.repo.Visible(rec))
}
