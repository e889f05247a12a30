// Package config loads a TournamentConfig and its player roster from a
// YAML file and validates the submitted document against an embedded JSON
// Schema before admission, per the "reject submission synchronously"
// rule. Load's signature and load-then-validate shape follow
// multiworld.Load in the teacher repo.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tourneyforge.dev/internal/domain"
)

// File is the on-disk YAML shape accepted by cmd/runner and the server's
// submission endpoint.
type File struct {
	Name           string                `yaml:"name"`
	Rounds         int                   `yaml:"rounds"`
	GamesPerPlayer int                   `yaml:"gamesPerPlayer"`
	MaxTurns       int                   `yaml:"maxTurns"`
	Players        []domain.PlayerConfig `yaml:"players"`
}

// Load reads path, parses it as YAML, validates it against schemaJSON (an
// embedded JSON Schema document), and returns the resulting
// domain.TournamentConfig. Schema validation and domain.Validate are both
// applied; either failing rejects the submission before anything is
// written to disk.
func Load(path string) (domain.TournamentConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.TournamentConfig{}, err
	}
	return Parse(b)
}

// Parse validates and converts raw YAML bytes into a TournamentConfig,
// the shared path used by Load and by the server's submission handler
// (which receives the document over HTTP rather than from a file).
func Parse(raw []byte) (domain.TournamentConfig, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return domain.TournamentConfig{}, fmt.Errorf("config: %w", err)
	}

	if err := validateSchema(raw); err != nil {
		return domain.TournamentConfig{}, fmt.Errorf("config: schema: %w", err)
	}

	cfg := domain.TournamentConfig{
		Name:           f.Name,
		Rounds:         f.Rounds,
		GamesPerPlayer: f.GamesPerPlayer,
		MaxTurns:       f.MaxTurns,
		Players:        f.Players,
	}
	if err := cfg.Validate(); err != nil {
		return domain.TournamentConfig{}, err
	}
	return cfg, nil
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tournament-config.json", toReader(schemaJSON)); err != nil {
		panic(err)
	}
	s, err := c.Compile("tournament-config.json")
	if err != nil {
		panic(err)
	}
	return s
}

// validateSchema re-parses raw as generic YAML-via-JSON so jsonschema (a
// JSON-only validator) can check it; YAML is a superset of JSON for the
// scalar/mapping/sequence shapes this schema describes.
func validateSchema(raw []byte) error {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	asJSON, err := yamlValueToJSON(generic)
	if err != nil {
		return err
	}
	return compiledSchema.Validate(asJSON)
}

// yamlValueToJSON normalizes yaml.v3's map[string]interface{} decoding
// (which, for nested mappings, already uses string keys) into a value
// jsonschema's Validate accepts; a JSON roundtrip is the simplest way to
// also coerce any map[interface{}]interface{} remnants.
func yamlValueToJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
