package portreg

import (
	"context"
	"testing"
	"time"
)

func TestListenDispatchSynchronousHandler(t *testing.T) {
	r := New()
	r.Listen(5000, func(req *Request, resp *Response) <-chan struct{} {
		resp.Status = 200
		resp.Body = []byte("pong")
		return nil
	})

	resp, err := r.Dispatch(context.Background(), 5000, &Request{Method: "GET", Path: "/"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != 200 || string(resp.Body) != "pong" {
		t.Fatalf("got status=%d body=%q", resp.Status, resp.Body)
	}
}

func TestDispatchNotRegisteredFallsThrough(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), 5001, &Request{})
	if err != ErrNotRegistered {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestCloseUnregistersHandler(t *testing.T) {
	r := New()
	r.Listen(5000, func(req *Request, resp *Response) <-chan struct{} {
		resp.Status = 200
		return nil
	})
	r.Close(5000)

	_, err := r.Dispatch(context.Background(), 5000, &Request{})
	if err != ErrNotRegistered {
		t.Fatalf("expected ErrNotRegistered after close, got %v", err)
	}
}

func TestListenReplacesExistingHandler(t *testing.T) {
	r := New()
	r.Listen(5000, func(req *Request, resp *Response) <-chan struct{} {
		resp.Body = []byte("first")
		return nil
	})
	r.Listen(5000, func(req *Request, resp *Response) <-chan struct{} {
		resp.Body = []byte("second")
		return nil
	})
	resp, _ := r.Dispatch(context.Background(), 5000, &Request{})
	if string(resp.Body) != "second" {
		t.Fatalf("expected replaced handler to win, got %q", resp.Body)
	}
}

func TestDispatchWaitsForDonePromise(t *testing.T) {
	r := New()
	r.Listen(5000, func(req *Request, resp *Response) <-chan struct{} {
		done := make(chan struct{})
		go func() {
			time.Sleep(10 * time.Millisecond)
			resp.Status = 200
			resp.Body = []byte("lazy")
			close(done)
		}()
		return done
	})

	resp, err := r.Dispatch(context.Background(), 5000, &Request{})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "lazy" {
		t.Fatalf("expected lazily-populated body, got %q", resp.Body)
	}
}

func TestDispatchAllConcurrent(t *testing.T) {
	r := New()
	for _, p := range []int{1, 2, 3} {
		p := p
		r.Listen(p, func(req *Request, resp *Response) <-chan struct{} {
			resp.Body = []byte(req.Path)
			return nil
		})
	}

	reqs := []*Request{{Path: "a"}, {Path: "b"}, {Path: "c"}}
	resps, err := r.DispatchAll(context.Background(), []int{1, 2, 3}, reqs)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(resps[i].Body) != want {
			t.Fatalf("resps[%d] = %q, want %q", i, resps[i].Body, want)
		}
	}
}
