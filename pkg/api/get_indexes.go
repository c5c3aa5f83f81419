package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetIndexes handles GET requests to retrieve all indexes of a class
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	className := mux.Vars(r)["class"]

	indexes := h.indexer.GetIndexes(className)
	if indexes == nil {
		indexes = []string{}
	}

	writeJSON(w, http.StatusOK, struct {
		IndexResponse
		IndexCount int `json:"index_count"`
	}{
		IndexResponse: IndexResponse{Success: true, Class: className, Indexes: indexes},
		IndexCount:    len(indexes),
	})
}
