package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"tourneyforge.dev/internal/domain"
	"tourneyforge.dev/internal/mirror"
)

// ArchiveMeta is the meta.json summary written alongside every archived
// tournament's artifact copies.
type ArchiveMeta struct {
	Name           string    `json:"name"`
	State          string    `json:"state"`
	FinishedAt     time.Time `json:"finishedAt"`
	TotalGames     int       `json:"totalGames"`
	CompletedGames int       `json:"completedGames"`
}

// ArchiveTournament copies tournament.json, every round-NN.json, and
// tape.json (zstd-compressed) into <dataDir>/<name>/archive/, once the
// tournament has reached COMPLETED or FAILED. state/totalGames/completedGames
// come straight from the Runner's final TournamentStatus rather than being
// recomputed here, so the archived meta.json always agrees with whatever
// the status broadcaster last published. Grounded on
// internal/persistence/archive/season_archive.go's copy-into-dated-dir
// pattern, generalized from a single snapshot file to a whole artifact
// set and from tick-based season boundaries to tournament completion.
func ArchiveTournament(dataDir string, s *Store, status domain.TournamentStatus, rounds int) (string, error) {
	cfg, err := s.ReadMetadata()
	if err != nil {
		return "", err
	}

	archiveDir := filepath.Join(dataDir, cfg.Name, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	if err := copyPlain(s.metadataPath(), filepath.Join(archiveDir, "tournament.json")); err != nil {
		return "", err
	}
	for n := 1; n <= rounds; n++ {
		if !s.RoundExists(n) {
			continue
		}
		src := s.roundPath(n)
		dst := filepath.Join(archiveDir, filepath.Base(src))
		if err := copyPlain(src, dst); err != nil {
			return "", err
		}
	}
	if _, err := os.Stat(s.tapePath()); err == nil {
		if err := copyCompressed(s.tapePath(), filepath.Join(archiveDir, "tape.json.zst")); err != nil {
			return "", err
		}
	}

	meta := ArchiveMeta{
		Name:           cfg.Name,
		State:          string(status.State),
		FinishedAt:     time.Now().UTC(),
		TotalGames:     status.TotalGames,
		CompletedGames: status.CompletedGames,
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}

	return archiveDir, nil
}

// MirrorArchive enqueues every file under archiveDir onto m for upload,
// keyed by <tournamentName>/<filename>. Enqueuing is fire-and-forget: m
// owns its own worker pool, retry-with-backoff, and queue-saturation
// drop counters (internal/mirror), so a slow or unreachable object store
// never blocks tournament completion, and a nil m (mirroring disabled)
// is a no-op.
func MirrorArchive(m *mirror.Mirror, tournamentName, archiveDir string) error {
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := tournamentName + "/" + e.Name()
		m.Enqueue(key, filepath.Join(archiveDir, e.Name()))
	}
	return nil
}

func copyPlain(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyCompressed(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
