package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Class operations
	router.HandleFunc("/classes/{class}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/classes/{class}", h.HandleFindWithFilter).Methods("GET")
	router.HandleFunc("/classes/{class}/batch", h.HandleBatchInsert).Methods("POST")
	router.HandleFunc("/classes/{class}/upsert", h.HandleUpsert).Methods("PUT")

	// Descriptor queries
	router.HandleFunc("/classes/{class}/query", h.HandleQuery).Methods("POST")
	router.HandleFunc("/classes/{class}/query/first", h.HandleFirst).Methods("POST")
	router.HandleFunc("/classes/{class}/query/count", h.HandleCount).Methods("POST")
	router.HandleFunc("/classes/{class}/query/delete", h.HandleDeleteMatching).Methods("POST")

	// Object operations (by ID)
	router.HandleFunc("/classes/{class}/objects/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/classes/{class}/objects/{id}", h.HandleUpdateById).Methods("PUT")
	router.HandleFunc("/classes/{class}/objects/{id}", h.HandleDeleteById).Methods("DELETE")

	// Index operations
	router.HandleFunc("/classes/{class}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/classes/{class}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/classes/{class}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")
}
