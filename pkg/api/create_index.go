package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// IndexResponse is the body of index management requests
type IndexResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Class   string   `json:"class"`
	Field   string   `json:"field,omitempty"`
	Indexes []string `json:"indexes,omitempty"`
}

// HandleCreateIndex creates an index on a specific field of a class
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	className := vars["class"]
	fieldName := vars["field"]

	if fieldName == "" {
		WriteJSONError(w, http.StatusBadRequest, "field name is required")
		return
	}

	// objectId lookups are direct
	if fieldName == domain.FieldObjectID {
		WriteJSONError(w, http.StatusBadRequest, "cannot create index on objectId field (automatically indexed)")
		return
	}

	if err := h.indexer.CreateIndex(className, fieldName); err != nil {
		h.log.Error("create index failed", "class", className, "field", fieldName, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info("index created", "class", className, "field", fieldName)
	writeJSON(w, http.StatusCreated, IndexResponse{
		Success: true,
		Message: "Index created successfully",
		Class:   className,
		Field:   fieldName,
	})
}

// HandleDropIndex removes the index on a field of a class
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	className := vars["class"]
	fieldName := vars["field"]

	if err := h.indexer.DropIndex(className, fieldName); err != nil {
		WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, IndexResponse{
		Success: true,
		Message: "Index dropped successfully",
		Class:   className,
		Field:   fieldName,
	})
}
