package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tourneyforge.dev/internal/domain"
)

// Index is a secondary, queryable SQLite view over completed tournaments,
// rounds, and ratings. The JSON files written by Store remain the sole
// authoritative artifact (SPEC_FULL.md §3); this index is a
// rebuildable convenience layer for dashboards/ad-hoc queries, never
// consulted by the Runner itself. A single background goroutine owns the
// one open *sql.DB connection and serializes all writes, the same
// single-writer pattern as the teacher's SQLiteIndex, generalized here
// from world ticks/audits to tournament rounds/ratings.
type Index struct {
	db *sql.DB

	ch   chan indexReq
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type indexReqKind int

const (
	reqRound indexReqKind = iota + 1
	reqStatus
)

type indexReq struct {
	kind indexReqKind

	roundRow  roundRow
	statusRow statusRow
}

type roundRow struct {
	Tournament string
	Round      int
	Games      int
	RecordedAt string
}

type statusRow struct {
	Tournament string
	State      string
	PlayerID   string
	Display    float64
	RecordedAt string
}

// OpenIndex opens (creating if necessary) the SQLite database at path and
// starts its writer goroutine.
func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := initIndexSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	idx := &Index{db: db, ch: make(chan indexReq, 4096)}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.loop()
	}()
	return idx, nil
}

func initIndexSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			tournament TEXT NOT NULL,
			round INTEGER NOT NULL,
			games INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (tournament, round)
		);`,
		`CREATE TABLE IF NOT EXISTS ratings (
			tournament TEXT NOT NULL,
			player_id TEXT NOT NULL,
			state TEXT NOT NULL,
			display REAL NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (tournament, player_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordRound enqueues a completed round for indexing. Writes are best
// effort: if the writer goroutine is backed up the entry is dropped, since
// the JSON round files remain authoritative.
func (idx *Index) RecordRound(tournament string, round, games int) {
	if idx == nil || idx.closed.Load() {
		return
	}
	row := roundRow{Tournament: tournament, Round: round, Games: games, RecordedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	select {
	case idx.ch <- indexReq{kind: reqRound, roundRow: row}:
	default:
	}
}

// RecordStatus enqueues the current display ratings from a status delta.
func (idx *Index) RecordStatus(status domain.TournamentStatus) {
	if idx == nil || idx.closed.Load() {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for id, display := range status.Ratings {
		row := statusRow{Tournament: status.ID, State: string(status.State), PlayerID: id, Display: display, RecordedAt: now}
		select {
		case idx.ch <- indexReq{kind: reqStatus, statusRow: row}:
		default:
		}
	}
}

// Close drains the writer goroutine and closes the database.
func (idx *Index) Close() error {
	var err error
	idx.once.Do(func() {
		idx.closed.Store(true)
		close(idx.ch)
		idx.wg.Wait()
		err = idx.db.Close()
	})
	return err
}

func (idx *Index) loop() {
	ctx := context.Background()
	insertRound, _ := idx.db.PrepareContext(ctx, `INSERT OR REPLACE INTO rounds(tournament,round,games,recorded_at) VALUES(?,?,?,?)`)
	insertRating, _ := idx.db.PrepareContext(ctx, `INSERT OR REPLACE INTO ratings(tournament,player_id,state,display,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertRound != nil {
			_ = insertRound.Close()
		}
		if insertRating != nil {
			_ = insertRating.Close()
		}
	}()

	for r := range idx.ch {
		switch r.kind {
		case reqRound:
			row := r.roundRow
			_, _ = insertRound.ExecContext(ctx, row.Tournament, row.Round, row.Games, row.RecordedAt)
		case reqStatus:
			row := r.statusRow
			_, _ = insertRating.ExecContext(ctx, row.Tournament, row.PlayerID, row.State, row.Display, row.RecordedAt)
		}
	}
}
