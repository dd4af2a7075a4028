package persist

// MemoryBackend is the no-op persistence backend from spec section 4.9:
// every write is discarded, every read misses. It exists so callers that
// need *a* Backend value — tests exercising Save/Load wiring without
// caring whether data actually survives — don't need a real database.
type MemoryBackend struct{}

// NewMemoryBackend constructs the no-op backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (b *MemoryBackend) SaveAll(blobs map[string][]byte, name string, tree []byte) error {
	return nil
}

func (b *MemoryBackend) LoadSnapshot(name string) ([]byte, error) {
	return nil, ErrNotFound
}

func (b *MemoryBackend) GetBlob(hash string) ([]byte, error) {
	return nil, ErrNotFound
}

func (b *MemoryBackend) Close() error { return nil }
