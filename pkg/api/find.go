package api

import (
	"net/http"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// CountResponse is the body of a count request
type CountResponse struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

// UpsertRequest is the body of an update-or-create request
type UpsertRequest struct {
	Filters []query.Filter  `json:"filters"`
	Item    domain.Document `json:"item"`
}

// HandleQuery runs a descriptor and returns one page of results
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	c, d, ok := h.beginQuery(w, r)
	if !ok {
		return
	}

	page, err := c.repo.Retrieve(c.ctx, d, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	h.log.Debug("query completed", "class", c.repo.ClassName(), "results", len(page.Results), "total", page.Total)
	writeJSON(w, http.StatusOK, page)
}

// HandleFirst runs a descriptor and returns the first match
func (h *Handler) HandleFirst(w http.ResponseWriter, r *http.Request) {
	c, d, ok := h.beginQuery(w, r)
	if !ok {
		return
	}

	row, err := c.repo.FindOne(c.ctx, d, c.opts...)
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

// HandleCount counts the objects matching a descriptor
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	c, d, ok := h.beginQuery(w, r)
	if !ok {
		return
	}

	n, err := c.repo.Count(c.ctx, d, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Class: c.repo.ClassName(), Count: n})
}

// HandleDeleteMatching deletes the objects matching a descriptor and returns them
func (h *Handler) HandleDeleteMatching(w http.ResponseWriter, r *http.Request) {
	c, d, ok := h.beginQuery(w, r)
	if !ok {
		return
	}

	records, err := c.repo.DeleteMany(c.ctx, d, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	h.log.Info("objects deleted", "class", c.repo.ClassName(), "deleted", len(records))
	writeJSON(w, http.StatusOK, visibleAll(c.repo, records))
}

// HandleUpsert updates the first object matching the filters or creates one
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}

	var req UpsertRequest
	if err := decodeBody(w, r, &req); err != nil || req.Item == nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := c.repo.UpdateOrCreate(c.ctx, req.Filters, req.Item, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.repo.Visible(rec))
}

func (h *Handler) beginQuery(w http.ResponseWriter, r *http.Request) (call, *query.Descriptor, bool) {
	c, ok := h.begin(w, r)
	if !ok {
		return call{}, nil, false
	}
	d, err := decodeDescriptor(w, r)
	if err != nil {
		h.log.Error("decoding descriptor failed", "error", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid query descriptor")
		return call{}, nil, false
	}
	// the elevated token is only honoured with a validated master key
	if d.Token == query.MasterKeyToken && !c.elevated {
		WriteJSONError(w, http.StatusUnauthorized, "master key required")
		return call{}, nil, false
	}
	return c, d, true
}
