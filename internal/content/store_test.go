package content

import (
	"bytes"
	"testing"

	"github.com/lifo-sh/vush/internal/blob"
)

func TestRoundTripSmall(t *testing.T) {
	cs := New(blob.NewMemStore())
	data := []byte("small value")

	h, err := cs.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := cs.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRoundTripChunked(t *testing.T) {
	cs := New(blob.NewMemStore())

	data := make([]byte, ChunkThreshold+ChunkSize+123)
	for i := range data {
		data[i] = byte(i % 251)
	}

	h, err := cs.Put(data)
	if err != nil {
		t.Fatal(err)
	}

	got, err := cs.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("chunked round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestPutIdempotent(t *testing.T) {
	cs := New(blob.NewMemStore())
	data := make([]byte, ChunkThreshold+10)

	h1, err := cs.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := cs.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("put(b) returned different hashes across calls: %s vs %s", h1, h2)
	}
}
