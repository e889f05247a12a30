// Package store implements the Result Store (C5): atomic round/metadata
// writes, resume detection, and tape compilation. Grounded on
// multiworld.Manager's temp-file-then-rename writeState pattern and on the
// original RoundFileWriter's atomic-move discipline.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tourneyforge.dev/internal/domain"
)

// Store owns the on-disk artifacts for one tournament, rooted at dir
// (<dataDir>/<name>/, per §6).
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the tournament's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) metadataPath() string { return filepath.Join(s.dir, "tournament.json") }

func (s *Store) roundPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("round-%02d.json", n))
}

func (s *Store) tapePath() string { return filepath.Join(s.dir, "tape.json") }

// tournamentMetadata is the on-disk shape of tournament.json (§6).
type tournamentMetadata struct {
	Name   string `json:"name"`
	Config struct {
		Rounds         int `json:"rounds"`
		GamesPerPlayer int `json:"gamesPerPlayer"`
		MaxTurns       int `json:"maxTurns"`
	} `json:"config"`
	Players []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
	} `json:"players"`
}

// WriteMetadata writes tournament.json atomically.
func (s *Store) WriteMetadata(cfg domain.TournamentConfig) error {
	meta := tournamentMetadata{Name: cfg.Name}
	meta.Config.Rounds = cfg.Rounds
	meta.Config.GamesPerPlayer = cfg.GamesPerPlayer
	meta.Config.MaxTurns = cfg.MaxTurns
	for _, p := range cfg.Players {
		meta.Players = append(meta.Players, struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Endpoint string `json:"endpoint"`
		}{ID: p.ID, Name: p.Name, Endpoint: p.Endpoint})
	}
	return writeJSONAtomic(s.metadataPath(), meta)
}

// RoundExists reports whether round n's result file is already present
// (the resume check; §4.4, §4.5).
func (s *Store) RoundExists(n int) bool {
	_, err := os.Stat(s.roundPath(n))
	return err == nil
}

// WriteRound writes round.json atomically, filename round-NN.json with a
// two-digit zero-padded round number (§6, bit-exact).
func (s *Store) WriteRound(round domain.RoundResult) error {
	return writeJSONAtomic(s.roundPath(round.RoundNumber), round)
}

// ReadRound reads back a previously written round file, used by resume and
// by BuildTape.
func (s *Store) ReadRound(n int) (domain.RoundResult, error) {
	var r domain.RoundResult
	b, err := os.ReadFile(s.roundPath(n))
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("round-%02d.json: %w", n, err)
	}
	return r, nil
}

// ReadMetadata reads back tournament.json.
func (s *Store) ReadMetadata() (domain.TournamentConfig, error) {
	var meta tournamentMetadata
	b, err := os.ReadFile(s.metadataPath())
	if err != nil {
		return domain.TournamentConfig{}, err
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return domain.TournamentConfig{}, fmt.Errorf("tournament.json: %w", err)
	}
	cfg := domain.TournamentConfig{
		Name:           meta.Name,
		Rounds:         meta.Config.Rounds,
		GamesPerPlayer: meta.Config.GamesPerPlayer,
		MaxTurns:       meta.Config.MaxTurns,
	}
	for _, p := range meta.Players {
		cfg.Players = append(cfg.Players, domain.PlayerConfig{ID: p.ID, Name: p.Name, Endpoint: p.Endpoint})
	}
	return cfg, nil
}

// writeJSONAtomic marshals v and writes it to path via write-to-temp then
// rename, so a reader (or a killed process) only ever observes either the
// previous complete file or the new complete file (§8 P6).
func writeJSONAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
