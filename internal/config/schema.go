package config

import "strings"

func toReader(s string) *strings.Reader { return strings.NewReader(s) }

// schemaJSON is the embedded JSON Schema document a submitted tournament
// config must satisfy before domain.TournamentConfig.Validate ever runs.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "rounds", "gamesPerPlayer", "maxTurns", "players"],
  "properties": {
    "name": { "type": "string", "pattern": "^[a-z0-9-]+$" },
    "rounds": { "type": "integer", "minimum": 1 },
    "gamesPerPlayer": { "type": "integer", "minimum": 1 },
    "maxTurns": { "type": "integer", "minimum": 1 },
    "players": {
      "type": "array",
      "minItems": 4,
      "items": {
        "type": "object",
        "required": ["id", "name", "endpoint"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "name": { "type": "string", "minLength": 1 },
          "endpoint": { "type": "string", "minLength": 1 },
          "delayWrap": { "type": "boolean" }
        }
      }
    }
  }
}`
