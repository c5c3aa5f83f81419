package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// HandleGetById handles GET requests for one object. The include query
// parameter names comma separated relations to expand.
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	d := query.New()
	d.ID = id
	for _, path := range strings.Split(r.URL.Query().Get("include"), ",") {
		if path = strings.TrimSpace(path); path != "" {
			d.Expand(path)
		}
	}

	row, err := c.repo.FindByID(c.ctx, d, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	if row == nil {
		WriteJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
