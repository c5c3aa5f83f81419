package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/logger"
	"github.com/adfharrison1/go-docrepo/pkg/query"
	"github.com/adfharrison1/go-docrepo/pkg/repository"
)

const (
	HeaderSessionToken = "X-Session-Token"
	HeaderMasterKey    = "X-Master-Key"
)

// maxBodyBytes bounds every request body
const maxBodyBytes = 8 << 20

// Repositories resolves the repository serving a class
type Repositories interface {
	Repository(className string) (*repository.Repository, bool)
}

// Indexer manages secondary indexes of the backend
type Indexer interface {
	CreateIndex(className, fieldName string) error
	DropIndex(className, fieldName string) error
	GetIndexes(className string) []string
}

// Handler provides HTTP handlers over the class repositories
type Handler struct {
	repos     Repositories
	indexer   Indexer
	masterKey string
	log       *slog.Logger
}

// NewHandler creates a new API handler. An empty masterKey disables elevated
// requests.
func NewHandler(repos Repositories, indexer Indexer, masterKey string) *Handler {
	return &Handler{
		repos:     repos,
		indexer:   indexer,
		masterKey: masterKey,
		log:       logger.Get(),
	}
}

// call carries what every class handler needs
type call struct {
	repo     *repository.Repository
	ctx      context.Context
	opts     []repository.CallOption
	elevated bool
}

// begin resolves the class repository and the caller's access scope. It writes
// the error response itself and returns false when the request cannot proceed.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (call, bool) {
	className := mux.Vars(r)["class"]
	repo, ok := h.repos.Repository(className)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "unknown class")
		return call{}, false
	}

	c := call{repo: repo, ctx: r.Context()}
	if token := r.Header.Get(HeaderSessionToken); token != "" {
		c.ctx = repository.WithSession(c.ctx, token)
	}
	if key := r.Header.Get(HeaderMasterKey); key != "" {
		if h.masterKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.masterKey)) != 1 {
			WriteJSONError(w, http.StatusUnauthorized, "invalid master key")
			return call{}, false
		}
		c.opts = append(c.opts, repository.Elevated())
		c.elevated = true
	}
	return c, true
}

// decodeDescriptor reads a JSON descriptor. An empty body is the empty descriptor.
func decodeDescriptor(w http.ResponseWriter, r *http.Request) (*query.Descriptor, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return query.New(), nil
	}
	return query.Decode(bytes.NewReader(body))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// visibleAll returns the client-facing form of records
func visibleAll(repo *repository.Repository, records []domain.Record) []domain.Document {
	out := make([]domain.Document, len(records))
	for i, rec := range records {
		out[i] = repo.Visible(rec)
	}
	return out
}
