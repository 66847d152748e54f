// Package daemonconfig is the daemon/CLI ambient configuration layer:
// watch paths, pruning rules, and scheduler intervals, validated against
// an inline JSON Schema the same way internal/suffixstore validates its
// own engine tuning block.
package daemonconfig

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Config is the daemon's tuning block, decoded from the config file
// named on the command line.
type Config struct {
	DBPath              string   `json:"db-path"`
	WatchPaths          []string `json:"watch-paths"`
	Prune               string   `json:"prune,omitempty"`
	IndexFilenames      bool     `json:"index-filenames"`
	IndexPathComponents bool     `json:"index-path-components"`

	SweepIntervalSeconds      int `json:"sweep-interval-seconds"`
	CheckpointIntervalSeconds int `json:"checkpoint-interval-seconds"`

	HTTPAddr string `json:"http-addr,omitempty"`

	NatsAddress  string `json:"nats-address,omitempty"`
	NatsUsername string `json:"nats-username,omitempty"`
	NatsPassword string `json:"nats-password,omitempty"`

	LocalSocketPath string `json:"local-socket-path,omitempty"`

	ArchiveRootDir      string `json:"archive-root-dir,omitempty"`
	ArchiveIntervalSecs int    `json:"archive-interval-seconds,omitempty"`

	S3Bucket string `json:"s3-bucket,omitempty"`
	S3Region string `json:"s3-region,omitempty"`
	S3Prefix string `json:"s3-prefix,omitempty"`
}

const schemaJSON = `
{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"title": "subdex daemon config",
	"type": "object",
	"required": ["db-path", "watch-paths"],
	"properties": {
		"db-path": {"type": "string", "minLength": 1},
		"watch-paths": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"prune": {"type": "string"},
		"index-filenames": {"type": "boolean"},
		"index-path-components": {"type": "boolean"},
		"sweep-interval-seconds": {"type": "integer", "minimum": 0},
		"checkpoint-interval-seconds": {"type": "integer", "minimum": 0},
		"http-addr": {"type": "string"},
		"nats-address": {"type": "string"},
		"nats-username": {"type": "string"},
		"nats-password": {"type": "string"},
		"local-socket-path": {"type": "string"},
		"archive-root-dir": {"type": "string"},
		"archive-interval-seconds": {"type": "integer", "minimum": 0},
		"s3-bucket": {"type": "string"},
		"s3-region": {"type": "string"},
		"s3-prefix": {"type": "string"}
	}
}
`

// Validate checks raw against schemaJSON and decodes it into a Config
// with defaults filled in for an omitted sweep interval, checkpoint
// interval, http-addr and local-socket-path.
func Validate(raw json.RawMessage) (Config, error) {
	sch, err := jsonschema.CompileString("daemonconfig.json", schemaJSON)
	if err != nil {
		return Config{}, fmt.Errorf("compile daemon config schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Config{}, fmt.Errorf("decode daemon config: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return Config{}, fmt.Errorf("invalid daemon config: %w", err)
	}

	cfg := Config{
		SweepIntervalSeconds:      300,
		CheckpointIntervalSeconds: 3600,
		HTTPAddr:                  "127.0.0.1:8080",
		LocalSocketPath:           "/tmp/subdex.sock",
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode daemon config: %w", err)
	}
	return cfg, nil
}
