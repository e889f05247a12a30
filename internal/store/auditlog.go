package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// AuditEntry is one line of a tournament's audit trail (queued,
// round-written, completed or failed), for forensic replay independent of
// the JSON result files.
type AuditEntry struct {
	Time  time.Time `json:"time"`
	Kind  string    `json:"kind"`
	Round int       `json:"round,omitempty"`
	Games int       `json:"games,omitempty"`
	Error string    `json:"error,omitempty"`
}

// AuditLog is a zstd-compressed, hour-rotated JSONL writer, one file per
// hour under <tournament dir>/audit/. Grounded on
// internal/persistence/log/loggers.go's JSONLZstdWriter, generalized here
// from the world's tick/audit entries to tournament audit entries.
type AuditLog struct {
	dir string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewAuditLog opens an audit log rooted at dir (created on first Write).
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{dir: dir}
}

// Write appends entry to the current hour's compressed JSONL file,
// rotating to a new file when the UTC hour changes.
func (a *AuditLog) Write(entry AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	hour := entry.Time.UTC().Format("2006-01-02-15")
	if hour != a.curHour {
		if err := a.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := a.w.Write(b); err != nil {
		return err
	}
	if err := a.w.WriteByte('\n'); err != nil {
		return err
	}
	return a.w.Flush()
}

// Close flushes and closes the currently open file, if any.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *AuditLog) rotateLocked(hour string) error {
	if err := a.closeLocked(); err != nil {
		return err
	}
	path := a.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	a.f = f
	a.enc = enc
	a.w = bufio.NewWriterSize(enc, 64*1024)
	a.curHour = hour
	return nil
}

func (a *AuditLog) closeLocked() error {
	var err error
	if a.w != nil {
		_ = a.w.Flush()
	}
	if a.enc != nil {
		err = a.enc.Close()
		a.enc = nil
	}
	if a.f != nil {
		_ = a.f.Close()
		a.f = nil
	}
	a.w = nil
	return err
}

func (a *AuditLog) pathForHour(hour string) string {
	return filepath.Join(a.dir, "audit", fmt.Sprintf("audit-%s.jsonl.zst", hour))
}
