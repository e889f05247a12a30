package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"tourneyforge.dev/internal/broadcast"
	"tourneyforge.dev/internal/config"
	"tourneyforge.dev/internal/engine"
	"tourneyforge.dev/internal/mirror"
	"tourneyforge.dev/internal/player"
	"tourneyforge.dev/internal/protocol"
	"tourneyforge.dev/internal/rating"
	"tourneyforge.dev/internal/store"
	"tourneyforge.dev/internal/table"
	"tourneyforge.dev/internal/tournament"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		dataDir     = flag.String("data", "./data", "runtime data directory (one subdirectory per tournament)")
		poolSize    = flag.Int("pool-size", tournament.PoolSize, "worker pool size per tournament")
		indexPath   = flag.String("index", "", "path to the secondary SQLite index (default: <data>/index.db, empty to disable)")
		disableIdx  = flag.Bool("disable-index", false, "disable the SQLite secondary index")
		mirrorURL   = flag.String("mirror-endpoint", "", "optional S3-compatible endpoint to mirror completed tournament archives to")
		mirrorBkt   = flag.String("mirror-bucket", "", "mirror bucket name")
		mirrorWork  = flag.Int("mirror-workers", 2, "mirror upload worker pool size")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	var idx *store.Index
	if !*disableIdx {
		p := strings.TrimSpace(*indexPath)
		if p == "" {
			p = filepath.Join(*dataDir, "index.db")
		}
		var err error
		idx, err = store.OpenIndex(p)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	var mir *mirror.Mirror
	if strings.TrimSpace(*mirrorURL) != "" {
		mirrorClient, err := mirror.New(*mirrorURL, *mirrorBkt, os.Getenv("TOURNEYFORGE_MIRROR_ACCESS_KEY"), os.Getenv("TOURNEYFORGE_MIRROR_SECRET_KEY"))
		if err != nil {
			logger.Fatalf("init mirror client: %v", err)
		}
		mir = mirror.NewMirror(mirrorClient, *mirrorWork, 256, 25*time.Millisecond, logger)
		defer mir.Close()
	}

	bcast := broadcast.New()
	wsHandler := broadcast.NewWSHandler(bcast, logger)

	engines := engine.NewRegistry()
	engines.Register("demo", engine.NewDemoLoader())

	srv := &apiServer{
		dataDir:     *dataDir,
		poolSize:    *poolSize,
		bcast:       bcast,
		index:       idx,
		mirror:      mir,
		log:         logger,
		engines:     engines,
		strategies:  player.NewRegistry(),
		runningByID: make(map[string]context.CancelFunc),
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/tournaments", srv.handleSubmit)
	mux.HandleFunc("/v1/tournaments/", func(rw http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/tournaments/")
		switch {
		case strings.HasSuffix(id, "/status"):
			srv.handleStatus(rw, r, strings.TrimSuffix(id, "/status"))
		case strings.HasSuffix(id, "/ws"):
			wsHandler.ServeTournament(strings.TrimSuffix(id, "/ws"))(rw, r)
		case strings.HasSuffix(id, "/tape"):
			srv.handleTape(rw, r, strings.TrimSuffix(id, "/tape"))
		case r.Method == http.MethodDelete:
			srv.handleCancel(rw, r, id)
		default:
			http.NotFound(rw, r)
		}
	})
	mux.HandleFunc("/v1/strategies", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(srv.strategies.List())
	})

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = httpSrv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// apiServer wires HTTP submission/status/tape endpoints to the tournament
// core. Each submission spawns its own Runner in a goroutine; apiServer
// itself holds no tournament state beyond bookkeeping for cancellation.
type apiServer struct {
	dataDir    string
	poolSize   int
	bcast      *broadcast.Broadcaster
	index      *store.Index
	mirror     *mirror.Mirror
	log        *log.Logger
	engines    *engine.Registry
	strategies *player.Registry

	mu          sync.Mutex
	runningByID map[string]context.CancelFunc
}

func (s *apiServer) handleSubmit(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(rw, http.StatusMethodNotAllowed, protocol.ErrValidation, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeAPIError(rw, http.StatusBadRequest, protocol.ErrValidation, err.Error())
		return
	}
	cfg, err := config.Parse(body)
	if err != nil {
		writeAPIError(rw, http.StatusBadRequest, protocol.ErrValidation, err.Error())
		return
	}

	handle := strings.TrimSpace(r.URL.Query().Get("engine"))
	loader, ok := s.engines.Lookup(handle)
	if !ok {
		writeAPIError(rw, http.StatusBadRequest, protocol.ErrValidation, fmt.Sprintf("unknown engine handle: %q", handle))
		return
	}

	tDir := filepath.Join(s.dataDir, cfg.Name)
	st, err := store.New(tDir)
	if err != nil {
		writeAPIError(rw, http.StatusInternalServerError, protocol.ErrIO, err.Error())
		return
	}

	exec := table.NewExecutor(player.NewFactory(s.strategies, s.log), loader)
	runner := tournament.New(exec, st, s.bcast, rating.DefaultParams(), s.poolSize, s.log).
		WithAudit(store.NewAuditLog(tDir)).
		WithIndex(s.index)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.runningByID[cfg.Name] = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		runErr := runner.Run(ctx, cfg)
		if runErr != nil {
			s.log.Printf("tournament %s: %v", cfg.Name, runErr)
		}

		// Archival is purely additive and runs on both COMPLETED and
		// FAILED, independent of whether a mirror endpoint is configured;
		// only the off-box upload step is gated on s.mirror.
		status, ok := s.bcast.Status(cfg.Name)
		if !ok {
			return
		}
		archiveDir, err := store.ArchiveTournament(s.dataDir, st, status, cfg.Rounds)
		if err != nil {
			s.log.Printf("archive %s: %v", cfg.Name, err)
			return
		}
		if s.mirror != nil {
			if err := store.MirrorArchive(s.mirror, cfg.Name, archiveDir); err != nil {
				s.log.Printf("mirror %s: %v", cfg.Name, err)
			}
		}
	}()

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(rw).Encode(map[string]string{"id": cfg.Name})
}

// handleCancel cancels the context the tournament's games run under and
// forgets its cancel function. The Runner does not stop submitting games
// and does not move to FAILED on cancellation: a game whose players
// observe the cancelled context fails and is recorded as a zero-score
// outcome, and the run otherwise continues to its end.
func (s *apiServer) handleCancel(rw http.ResponseWriter, r *http.Request, id string) {
	s.mu.Lock()
	cancel, ok := s.runningByID[id]
	delete(s.runningByID, id)
	s.mu.Unlock()
	if !ok {
		writeAPIError(rw, http.StatusNotFound, protocol.ErrNotFound, fmt.Sprintf("no running tournament %q", id))
		return
	}
	cancel()
	rw.WriteHeader(http.StatusAccepted)
}

func (s *apiServer) handleStatus(rw http.ResponseWriter, r *http.Request, id string) {
	status, ok := s.bcast.Status(id)
	if !ok {
		writeAPIError(rw, http.StatusNotFound, protocol.ErrNotFound, fmt.Sprintf("no tournament %q", id))
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(status)
}

func (s *apiServer) handleTape(rw http.ResponseWriter, r *http.Request, id string) {
	st, err := store.New(filepath.Join(s.dataDir, id))
	if err != nil {
		writeAPIError(rw, http.StatusInternalServerError, protocol.ErrIO, err.Error())
		return
	}
	tape, err := st.BuildTape(rating.DefaultParams())
	if err != nil {
		writeAPIError(rw, http.StatusNotFound, protocol.ErrNotFound, err.Error())
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(tape)
}

// apiError is the JSON error envelope every handler below returns on
// failure: a human-readable message plus one of internal/protocol's E_*
// sentinel codes, so clients can branch on the code without parsing the
// message.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeAPIError(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(apiError{Error: msg, Code: code})
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
