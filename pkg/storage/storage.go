// Package storage is an in-memory document backend implementing domain.Backend.
// Objects carry an optional ACL, reads and writes are checked against the
// caller's access scope, and the whole database can be persisted as a
// compressed snapshot.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/indexing"
	"github.com/adfharrison1/go-docrepo/pkg/logger"
)

var (
	// ErrInvalidSession is returned when a session-bound scope names an unknown token
	ErrInvalidSession = errors.New("invalid session token")
	// ErrPermissionDenied is returned when the scope may not write an object
	ErrPermissionDenied = errors.New("permission denied")
)

// collection holds the objects of one class behind its own lock
type collection struct {
	mu           sync.RWMutex
	name         string
	docs         map[string]domain.Document
	dirty        bool
	lastModified time.Time
}

// StorageEngine is the in-memory backend
type StorageEngine struct {
	mu          sync.RWMutex
	collections map[string]*collection
	sessions    map[string]string // token -> user id
	indexEngine *indexing.IndexEngine

	// Configuration
	defaultLimit   int
	dataFile       string
	backgroundSave bool
	saveInterval   time.Duration
	now            func() time.Time

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

var _ domain.Backend = (*StorageEngine)(nil)

// NewStorageEngine creates a new storage engine
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:  make(map[string]*collection),
		sessions:     make(map[string]string),
		indexEngine:  indexing.NewIndexEngine(),
		defaultLimit: 100,
		saveInterval: 5 * time.Minute,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// getCollection returns the collection of a class, creating it when create is set
func (se *StorageEngine) getCollection(className string, create bool) *collection {
	se.mu.RLock()
	coll, exists := se.collections[className]
	se.mu.RUnlock()
	if exists || !create {
		return coll
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	// Double-check in case another goroutine created it
	if coll, exists := se.collections[className]; exists {
		return coll
	}
	coll = &collection{
		name:         className,
		docs:         make(map[string]domain.Document),
		lastModified: se.now(),
	}
	se.collections[className] = coll
	return coll
}

// lockCollections write-locks the collections of the given classes in name order
// and returns the unlock function.
func (se *StorageEngine) lockCollections(classNames []string) (map[string]*collection, func()) {
	names := append([]string(nil), classNames...)
	sort.Strings(names)

	locked := make(map[string]*collection, len(names))
	var order []*collection
	for _, name := range names {
		if _, done := locked[name]; done {
			continue
		}
		coll := se.getCollection(name, true)
		coll.mu.Lock()
		locked[name] = coll
		order = append(order, coll)
	}
	return locked, func() {
		for i := len(order) - 1; i >= 0; i-- {
			order[i].mu.Unlock()
		}
	}
}

// principal resolves a scope into the acting user
func (se *StorageEngine) principal(scope domain.Scope) (principal, error) {
	switch scope.Mode {
	case domain.AccessElevated:
		return principal{elevated: true}, nil
	case domain.AccessSession:
		se.mu.RLock()
		userID, ok := se.sessions[scope.Token]
		se.mu.RUnlock()
		if !ok {
			return principal{}, ErrInvalidSession
		}
		return principal{userID: userID}, nil
	default:
		return principal{}, nil
	}
}

// NewQuery implements domain.Backend
func (se *StorageEngine) NewQuery(className string) domain.Query {
	return newQuery(se, className)
}

// NewRecord implements domain.Backend
func (se *StorageEngine) NewRecord(className string) domain.Record {
	return &Record{engine: se, class: className, fields: domain.Document{}}
}

// Get implements domain.Backend
func (se *StorageEngine) Get(ctx context.Context, className, id string, scope domain.Scope) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := se.principal(scope)
	if err != nil {
		return nil, err
	}
	doc, ok := se.lookup(className, id, p)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", className, id, domain.ErrObjectNotFound)
	}
	return &Record{engine: se, class: className, fields: doc}, nil
}

// lookup returns a copy of a readable object
func (se *StorageEngine) lookup(className, id string, p principal) (domain.Document, bool) {
	coll := se.getCollection(className, false)
	if coll == nil {
		return nil, false
	}
	coll.mu.RLock()
	defer coll.mu.RUnlock()

	doc, exists := coll.docs[id]
	if !exists || !p.canRead(doc) {
		return nil, false
	}
	return doc.Clone(), true
}

// newObjectID generates a short random object id unique within coll
func newObjectID(coll *collection) string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		if _, taken := coll.docs[id]; !taken {
			return id
		}
	}
}

// CreateSession registers a session for userID and returns its token
func (se *StorageEngine) CreateSession(userID string) string {
	token := "r:" + strings.ReplaceAll(uuid.NewString(), "-", "")
	se.mu.Lock()
	se.sessions[token] = userID
	se.mu.Unlock()
	return token
}

// RevokeSession removes a session token
func (se *StorageEngine) RevokeSession(token string) {
	se.mu.Lock()
	delete(se.sessions, token)
	se.mu.Unlock()
}

// Classes returns the names of all classes, sorted
func (se *StorageEngine) Classes() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()
	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetMemoryStats returns object counts per class
func (se *StorageEngine) GetMemoryStats() map[string]interface{} {
	colls := se.snapshotCollections()
	se.mu.RLock()
	sessions := len(se.sessions)
	se.mu.RUnlock()

	total := 0
	perClass := make(map[string]int, len(colls))
	for _, coll := range colls {
		coll.mu.RLock()
		perClass[coll.name] = len(coll.docs)
		total += len(coll.docs)
		coll.mu.RUnlock()
	}
	return map[string]interface{}{
		"classes":       perClass,
		"total_objects": total,
		"sessions":      sessions,
	}
}

// StartBackgroundWorkers starts the background save worker
func (se *StorageEngine) StartBackgroundWorkers() {
	if !se.backgroundSave || se.dataFile == "" {
		return
	}

	se.backgroundWg.Add(1)
	go func() {
		defer se.backgroundWg.Done()
		ticker := time.NewTicker(se.saveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !se.isDirty() {
					continue
				}
				if err := se.SaveToFile(se.dataFile); err != nil {
					logger.Error("background save failed", "file", se.dataFile, "error", err)
				}
			case <-se.stopChan:
				return
			}
		}
	}()
}

// StopBackgroundWorkers stops background workers
func (se *StorageEngine) StopBackgroundWorkers() {
	se.stopOnce.Do(func() { close(se.stopChan) })
	se.backgroundWg.Wait()
}

func (se *StorageEngine) isDirty() bool {
	for _, coll := range se.snapshotCollections() {
		coll.mu.RLock()
		dirty := coll.dirty
		coll.mu.RUnlock()
		if dirty {
			return true
		}
	}
	return false
}

// snapshotCollections copies the collection list so callers can lock
// collections without holding the engine lock
func (se *StorageEngine) snapshotCollections() []*collection {
	se.mu.RLock()
	defer se.mu.RUnlock()
	colls := make([]*collection, 0, len(se.collections))
	for _, coll := range se.collections {
		colls = append(colls, coll)
	}
	return colls
}
