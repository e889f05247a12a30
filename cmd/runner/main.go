package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tourneyforge.dev/internal/broadcast"
	"tourneyforge.dev/internal/config"
	"tourneyforge.dev/internal/engine"
	"tourneyforge.dev/internal/mirror"
	"tourneyforge.dev/internal/player"
	"tourneyforge.dev/internal/rating"
	"tourneyforge.dev/internal/store"
	"tourneyforge.dev/internal/table"
	"tourneyforge.dev/internal/tournament"
)

// cmd/runner is a synchronous, single-tournament batch CLI: the Go
// equivalent of TournamentRunner.main in the original, minus its
// engine-jar/engine-class positional arguments (the engine handle is
// looked up from the built-in registry instead of loaded reflectively
// from a JAR). Scheduling knobs (rounds, games per player, max turns,
// roster) live in the config file rather than flags, matching how
// cmd/server accepts them over HTTP.
func main() {
	var (
		configPath = flag.String("config", "", "path to a tournament config YAML file")
		dataDir    = flag.String("data-dir", "./data", "output directory (a subdirectory named after the tournament is created beneath it)")
		poolSize   = flag.Int("pool-size", tournament.PoolSize, "worker pool size")
		engineName = flag.String("engine", "demo", "registered engine handle to play games with")
		mirrorURL  = flag.String("mirror-endpoint", "", "optional S3-compatible endpoint to mirror the completed tournament archive to")
		mirrorBkt  = flag.String("mirror-bucket", "", "mirror bucket name")
		mirrorWork = flag.Int("mirror-workers", 2, "mirror upload worker pool size")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[runner] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("missing -config")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	engines := engine.NewRegistry()
	engines.Register("demo", engine.NewDemoLoader())
	loader, ok := engines.Lookup(*engineName)
	if !ok {
		logger.Fatalf("unknown engine handle: %q", *engineName)
	}

	tDir := *dataDir + "/" + cfg.Name
	st, err := store.New(tDir)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}

	exec := table.NewExecutor(player.NewFactory(player.NewRegistry(), logger), loader)
	bcast := broadcast.New()
	runner := tournament.New(exec, st, bcast, rating.DefaultParams(), *poolSize, logger).
		WithAudit(store.NewAuditLog(tDir))

	var mir *mirror.Mirror
	if strings.TrimSpace(*mirrorURL) != "" {
		mirrorClient, err := mirror.New(*mirrorURL, *mirrorBkt, os.Getenv("TOURNEYFORGE_MIRROR_ACCESS_KEY"), os.Getenv("TOURNEYFORGE_MIRROR_SECRET_KEY"))
		if err != nil {
			logger.Fatalf("init mirror client: %v", err)
		}
		mir = mirror.NewMirror(mirrorClient, *mirrorWork, 256, 25*time.Millisecond, logger)
		defer mir.Close()
	}

	start := time.Now()
	logger.Printf("starting tournament %q: %d rounds, %d players", cfg.Name, cfg.Rounds, len(cfg.Players))

	runErr := runner.Run(context.Background(), cfg)
	if runErr != nil {
		logger.Printf("tournament failed: %v", runErr)
	}

	elapsed := time.Since(start)
	status, ok := bcast.Status(cfg.Name)
	if ok {
		// Archival is purely additive and runs on both COMPLETED and
		// FAILED; only the off-box upload step is gated on a configured
		// mirror endpoint.
		archiveDir, err := store.ArchiveTournament(*dataDir, st, status, cfg.Rounds)
		if err != nil {
			logger.Printf("archive %s: %v", cfg.Name, err)
		} else if mir != nil {
			if err := store.MirrorArchive(mir, cfg.Name, archiveDir); err != nil {
				logger.Printf("mirror %s: %v", cfg.Name, err)
			}
		}
	}

	if runErr != nil {
		os.Exit(1)
	}

	gamesPerSec := float64(status.CompletedGames) / elapsed.Seconds()
	logger.Printf("tournament complete: %s played in %s (%.1f games/sec), results in %s",
		humanize.Comma(int64(status.CompletedGames)), elapsed.Round(time.Millisecond), gamesPerSec, tDir)
}
