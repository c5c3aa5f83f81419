package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
	"github.com/adfharrison1/go-docrepo/pkg/logger"
)

// maxSnapshotSize bounds the decoded payload of a snapshot
const maxSnapshotSize = 1 << 32

// SaveToFile writes every class, index definition and session to a snapshot.
// The file is written to a temporary path and renamed into place.
func (se *StorageEngine) SaveToFile(filename string) error {
	data := NewStorageData()

	colls := se.snapshotCollections()
	for _, coll := range colls {
		coll.mu.RLock()
		docs := make(map[string]domain.Document, len(coll.docs))
		for id, doc := range coll.docs {
			docs[id] = doc.Clone()
		}
		coll.mu.RUnlock()
		data.Collections[coll.name] = docs
	}

	se.mu.RLock()
	for token, userID := range se.sessions {
		data.Sessions[token] = userID
	}
	se.mu.RUnlock()

	data.Indexes = se.indexEngine.ExportIndexes()

	payload, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	flags := FlagCompressed
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(payload, compressed, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	body := compressed[:n]
	if n == 0 {
		// Incompressible payloads are stored raw
		flags = 0
		body = payload
	}

	var buf bytes.Buffer
	if err := WriteHeader(&buf, flags, len(payload)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	buf.Write(body)

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}

	for _, coll := range colls {
		coll.mu.Lock()
		coll.dirty = false
		coll.mu.Unlock()
	}

	logger.Debug("snapshot saved", "file", filename, "classes", len(data.Collections), "bytes", buf.Len())
	return nil
}

// LoadFromFile replaces the engine contents with a snapshot. A missing file
// leaves the engine empty.
func (se *StorageEngine) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := readSnapshot(file)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}

	se.mu.Lock()
	se.collections = make(map[string]*collection, len(data.Collections))
	for name, docs := range data.Collections {
		if docs == nil {
			docs = make(map[string]domain.Document)
		}
		se.collections[name] = &collection{name: name, docs: docs, lastModified: se.now()}
	}
	se.sessions = data.Sessions
	if se.sessions == nil {
		se.sessions = make(map[string]string)
	}
	se.mu.Unlock()

	// indexes defined before the load must reflect the loaded objects
	for className := range se.indexEngine.ExportIndexes() {
		se.indexEngine.RebuildClass(className, data.Collections[className])
	}
	for className, fields := range data.Indexes {
		docs := data.Collections[className]
		for _, field := range fields {
			if err := se.indexEngine.CreateIndex(className, field, docs); err != nil {
				// already defined, rebuild it from the loaded objects
				se.indexEngine.RebuildClass(className, docs)
			}
		}
	}

	logger.Info("snapshot loaded", "file", filename, "classes", len(data.Collections))
	return nil
}

func readSnapshot(r io.Reader) (*StorageData, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if header.Length > maxSnapshotSize {
		return nil, fmt.Errorf("snapshot too large: %d bytes", header.Length)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	payload := body
	if header.Compressed() {
		payload = make([]byte, header.Length)
		n, err := lz4.UncompressBlock(body, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		payload = payload[:n]
	}

	var data StorageData
	if err := msgpack.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return &data, nil
}
