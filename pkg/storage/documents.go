package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

// SaveAll implements domain.Backend. Permissions of every record are checked
// before any of them is written.
func (se *StorageEngine) SaveAll(ctx context.Context, records []domain.Record, scope domain.Scope) error {
	recs, err := se.ownRecords(records)
	if err != nil {
		return err
	}
	return se.save(ctx, recs, scope)
}

// DestroyAll implements domain.Backend
func (se *StorageEngine) DestroyAll(ctx context.Context, records []domain.Record, scope domain.Scope) error {
	recs, err := se.ownRecords(records)
	if err != nil {
		return err
	}
	return se.destroy(ctx, recs, scope)
}

func (se *StorageEngine) ownRecords(records []domain.Record) ([]*Record, error) {
	out := make([]*Record, 0, len(records))
	for i, rec := range records {
		r, ok := rec.(*Record)
		if !ok || r.engine != se {
			return nil, fmt.Errorf("record %d does not belong to this storage engine", i)
		}
		out = append(out, r)
	}
	return out, nil
}

func classesOf(records []*Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.class)
	}
	return names
}

// save inserts new records and merges changes of existing ones
func (se *StorageEngine) save(ctx context.Context, records []*Record, scope domain.Scope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	p, err := se.principal(scope)
	if err != nil {
		return err
	}

	colls, unlock := se.lockCollections(classesOf(records))
	defer unlock()

	// Validate all records first
	for i, r := range records {
		id := r.ID()
		if id == "" {
			continue
		}
		existing, exists := colls[r.class].docs[id]
		if !exists {
			return fmt.Errorf("record %d: %s %s: %w", i, r.class, id, domain.ErrObjectNotFound)
		}
		if !p.canWrite(existing) {
			return fmt.Errorf("record %d: %s %s: %w", i, r.class, id, ErrPermissionDenied)
		}
	}

	now := se.now()
	for _, r := range records {
		coll := colls[r.class]
		id := r.ID()

		var oldDoc domain.Document
		stored := domain.Document{}
		if id == "" {
			id = newObjectID(coll)
			stored[domain.FieldObjectID] = id
			stored[domain.FieldCreatedAt] = now
		} else {
			oldDoc = coll.docs[id]
			stored = oldDoc.Clone()
		}

		for k, v := range r.fields {
			switch k {
			case domain.FieldObjectID, domain.FieldCreatedAt, domain.FieldUpdatedAt:
				continue
			}
			if v == nil {
				delete(stored, k)
				continue
			}
			stored[k] = storedValue(v)
		}
		stored[domain.FieldUpdatedAt] = now

		coll.docs[id] = stored
		se.indexEngine.UpdateIndexForDocument(r.class, id, oldDoc, stored)
		markDirty(coll, now)

		r.fields = stored.Clone()
	}
	return nil
}

// destroy deletes records after checking that all of them exist and are writable
func (se *StorageEngine) destroy(ctx context.Context, records []*Record, scope domain.Scope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	p, err := se.principal(scope)
	if err != nil {
		return err
	}

	colls, unlock := se.lockCollections(classesOf(records))
	defer unlock()

	for i, r := range records {
		doc, exists := colls[r.class].docs[r.ID()]
		if !exists {
			return fmt.Errorf("record %d: %s %s: %w", i, r.class, r.ID(), domain.ErrObjectNotFound)
		}
		if !p.canWrite(doc) {
			return fmt.Errorf("record %d: %s %s: %w", i, r.class, r.ID(), ErrPermissionDenied)
		}
	}

	now := se.now()
	for _, r := range records {
		coll := colls[r.class]
		id := r.ID()
		se.indexEngine.UpdateIndexForDocument(r.class, id, coll.docs[id], nil)
		delete(coll.docs, id)
		markDirty(coll, now)
	}
	return nil
}

// Import stores documents as given, keeping their objectId when present. It
// bypasses permissions and is meant for seeding and restores.
func (se *StorageEngine) Import(className string, docs ...domain.Document) ([]string, error) {
	if className == "" {
		return nil, fmt.Errorf("class name cannot be empty")
	}
	colls, unlock := se.lockCollections([]string{className})
	defer unlock()
	coll := colls[className]

	now := se.now()
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		stored := make(domain.Document, len(doc)+3)
		for k, v := range doc {
			stored[k] = storedValue(v)
		}
		id, _ := stored[domain.FieldObjectID].(string)
		if id == "" {
			id = newObjectID(coll)
			stored[domain.FieldObjectID] = id
		}
		if _, ok := stored[domain.FieldCreatedAt]; !ok {
			stored[domain.FieldCreatedAt] = now
		}
		if _, ok := stored[domain.FieldUpdatedAt]; !ok {
			stored[domain.FieldUpdatedAt] = now
		}

		se.indexEngine.UpdateIndexForDocument(className, id, coll.docs[id], stored)
		coll.docs[id] = stored
		ids = append(ids, id)
	}
	markDirty(coll, now)
	return ids, nil
}

func markDirty(coll *collection, now time.Time) {
	coll.dirty = true
	coll.lastModified = now
}
