package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	const body = `[{"buildingId":"b1"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			t.Error("full fetch must not send a Range header")
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rc, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(got) != body {
		t.Errorf("body = %q, want %q", got, body)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestFetchRange(t *testing.T) {
	const prefix = `[{"buildingId":"b1"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=0-1024" {
			t.Errorf("Range header = %q, want bytes=0-1024", got)
		}
		w.WriteHeader(http.StatusPartialContent)
		io.WriteString(w, prefix)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	rc, err := c.FetchRange(context.Background(), 1024)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != prefix {
		t.Errorf("body = %q, want %q", got, prefix)
	}
}

func TestFetchRangeUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Full 200 response: the source ignored the Range header.
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.FetchRange(context.Background(), 1024)
	if !errors.Is(err, ErrPreviewUnavailable) {
		t.Fatalf("err = %v, want ErrPreviewUnavailable", err)
	}
}

func TestFetchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
