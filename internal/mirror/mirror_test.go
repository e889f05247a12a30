package mirror

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	c, err := New(srv.URL, "bucket", "key", "secret")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writeTempFile(t *testing.T, contents string) string {
	dir := t.TempDir()
	p := filepath.Join(dir, "payload.txt")
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMirrorRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMirror(newTestClient(t, srv), 1, 4, time.Millisecond, nil)
	m.Enqueue("k", writeTempFile(t, "data"))
	m.Close()

	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
	stats := m.Stats()
	if stats.UploadSuccessTotal != 1 || stats.UploadFailTotal != 0 {
		t.Fatalf("stats = %+v, want one success and no failures", stats)
	}
}

func TestMirrorGivesUpOnNonRetryableStatus(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := NewMirror(newTestClient(t, srv), 1, 4, time.Millisecond, nil)
	m.Enqueue("k", writeTempFile(t, "data"))
	m.Close()

	if got := attempts.Load(); got != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on a 403)", got)
	}
	if stats := m.Stats(); stats.UploadFailTotal != 1 {
		t.Fatalf("stats = %+v, want one failure", stats)
	}
}

func TestMirrorDropsUnderQueueSaturation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMirror(newTestClient(t, srv), 1, 1, time.Millisecond, nil)
	path := writeTempFile(t, "data")

	// First job occupies the sole worker; second fills the depth-1 queue;
	// the third has nowhere to go and must be dropped after enqueueWait.
	m.Enqueue("a", path)
	m.Enqueue("b", path)
	m.Enqueue("c", path)

	close(block)
	m.Close()

	stats := m.Stats()
	if stats.DroppedTotal == 0 {
		t.Fatalf("stats = %+v, want at least one dropped job", stats)
	}
}

func TestMirrorNilIsNoop(t *testing.T) {
	var m *Mirror
	m.Enqueue("k", "/nowhere")
	m.Close()
	if stats := m.Stats(); stats != (Stats{}) {
		t.Fatalf("nil mirror stats = %+v, want zero value", stats)
	}
}

func TestNewMirrorNilClientDisabled(t *testing.T) {
	if m := NewMirror(nil, 1, 1, time.Millisecond, nil); m != nil {
		t.Fatalf("NewMirror(nil client) = %v, want nil", m)
	}
}
