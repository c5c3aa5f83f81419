package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteById handles DELETE requests for one object and returns the
// deleted object
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	rec, err := c.repo.DeleteByID(c.ctx, id, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	h.log.Info("object deleted", "class", c.repo.ClassName(), "objectId", id)
	writeJSON(w, http.StatusOK, c.repo.Visible(rec))
}
