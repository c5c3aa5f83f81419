package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// HandleUpdateById handles PUT requests merging the body into one object
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var item domain.Document
	if err := decodeBody(w, r, &item); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := c.repo.UpdateOne(c.ctx, id, item, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	h.log.Info("object updated", "class", c.repo.ClassName(), "objectId", id)
	writeJSON(w, http.StatusOK, c.repo.Visible(rec))
}
