package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/adfharrison1/go-docrepo/pkg/domain"
)

const (
	// Magic bytes to identify the snapshot format
	MagicBytes = "GODB"
	// Current version
	FormatVersion = 2
	// File extension for snapshots
	FileExtension = ".godb"
)

const (
	// FlagCompressed marks an lz4 block-compressed payload
	FlagCompressed uint8 = 1 << iota
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic    [4]byte // "GODB"
	Version  uint8   // Format version
	Flags    uint8   // Payload flags
	Reserved [2]byte // Reserved for future use
	Length   uint64  // Uncompressed payload length
}

// Compressed reports whether the payload is lz4 compressed
func (h *FileHeader) Compressed() bool {
	return h.Flags&FlagCompressed != 0
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, length int) error {
	header := FileHeader{
		Magic:   [4]byte{'G', 'O', 'D', 'B'},
		Version: FormatVersion,
		Flags:   flags,
		Length:  uint64(length),
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Validate magic bytes
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	// Validate version
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// StorageData is the snapshot payload
type StorageData struct {
	Collections map[string]map[string]domain.Document `msgpack:"collections"`
	Indexes     map[string][]string                   `msgpack:"indexes,omitempty"`
	Sessions    map[string]string                     `msgpack:"sessions,omitempty"`
}

// NewStorageData creates a new empty storage data structure
func NewStorageData() *StorageData {
	return &StorageData{
		Collections: make(map[string]map[string]domain.Document),
		Indexes:     make(map[string][]string),
		Sessions:    make(map[string]string),
	}
}
