// Package content implements chunked large-object storage on top of
// internal/blob, the same way minimega's iomeshage splits large file
// transfers into numbered parts (iomeshage.go's getParts/Parts/NumParts)
// — adapted here from mesh transfer to local chunk storage.
package content

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/lifo-sh/vush/internal/blob"
)

const (
	// ChunkThreshold is the size at or above which a value is chunked.
	ChunkThreshold = 1 << 20 // 1 MiB

	// ChunkSize is the size of each chunk of a chunked value.
	ChunkSize = 256 << 10 // 256 KiB

	manifestMagic = "vush-chunked-manifest-v1"
)

// manifest is the structured header identifying a chunked object.
type manifest struct {
	Magic      string      `json:"magic"`
	TotalSize  int64       `json:"total_size"`
	ChunkHashes []blob.Hash `json:"chunk_hashes"`
}

// Store wraps a blob.Store, transparently chunking values at or above
// ChunkThreshold.
type Store struct {
	blobs blob.Store
	group singleflight.Group
}

// New wraps an underlying blob store.
func New(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Put stores b, chunking it if it is large, and returns the hash that Get
// will later accept to retrieve the original bytes.
func (s *Store) Put(b []byte) (blob.Hash, error) {
	if len(b) < ChunkThreshold {
		return s.blobs.Put(b)
	}

	// De-duplicate identical concurrent large writes: only one caller
	// actually does the chunk-and-manifest work for a given content hash.
	key := string(blob.Sum(b))
	h, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.putChunked(b)
	})
	if err != nil {
		return "", err
	}
	return h.(blob.Hash), nil
}

func (s *Store) putChunked(b []byte) (blob.Hash, error) {
	var hashes []blob.Hash
	for off := 0; off < len(b); off += ChunkSize {
		end := off + ChunkSize
		if end > len(b) {
			end = len(b)
		}
		h, err := s.blobs.Put(b[off:end])
		if err != nil {
			return "", fmt.Errorf("content: storing chunk at offset %d: %w", off, err)
		}
		hashes = append(hashes, h)
	}

	m := manifest{Magic: manifestMagic, TotalSize: int64(len(b)), ChunkHashes: hashes}
	mb, err := json.Marshal(m)
	if err != nil {
		return "", err
	}

	return s.blobs.Put(mb)
}

// Get returns the original bytes for h, reassembling chunks in order if h
// refers to a manifest.
func (s *Store) Get(h blob.Hash) ([]byte, error) {
	raw, err := s.blobs.Get(h)
	if err != nil {
		return nil, err
	}

	m, ok := tryParseManifest(raw)
	if !ok {
		return raw, nil
	}

	out := make([]byte, 0, m.TotalSize)
	var total int64
	for i, ch := range m.ChunkHashes {
		part, err := s.blobs.Get(ch)
		if err != nil {
			return nil, fmt.Errorf("content: fetching chunk %d: %w", i, err)
		}
		out = append(out, part...)
		total += int64(len(part))
	}

	if total != m.TotalSize {
		return nil, fmt.Errorf("content: manifest declared total size %d but chunks sum to %d", m.TotalSize, total)
	}

	return out, nil
}

// Has reports whether h is present (without validating chunk completeness).
func (s *Store) Has(h blob.Hash) bool {
	return s.blobs.Has(h)
}

func tryParseManifest(raw []byte) (manifest, bool) {
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return manifest{}, false
	}
	if m.Magic != manifestMagic {
		return manifest{}, false
	}
	return m, true
}
