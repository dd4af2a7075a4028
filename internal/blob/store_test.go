package blob

import "testing"

func TestBlobHashInvariant(t *testing.T) {
	s := NewMemStore()
	data := []byte("hello, vush")

	h, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if h != Sum(data) {
		t.Fatalf("stored hash %s != Sum(data) %s", h, Sum(data))
	}

	got, err := s.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestBlobIdempotence(t *testing.T) {
	s := NewMemStore()
	data := []byte("repeat me")

	h1, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("put(b) returned different hashes: %s vs %s", h1, h2)
	}
}

func TestBlobNotFound(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Get("deadbeef"); err == nil {
		t.Fatal("expected error for missing hash")
	}
	if s.Has("deadbeef") {
		t.Fatal("Has should be false for missing hash")
	}
}
