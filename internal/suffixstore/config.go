package suffixstore

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Config is the engine tuning block, validated against configSchemaJSON
// before use.
type Config struct {
	MemoryLimit   int `json:"memory-limit"`
	BufferSize    int `json:"buffer-size"`
	SearchByteCap int `json:"search-byte-cap"`
}

// Validate checks raw against configSchemaJSON and, if it passes, decodes
// it into a Config with engine defaults for any field left at zero.
func Validate(raw json.RawMessage) (Config, error) {
	sch, err := jsonschema.CompileString("suffixstore-config.json", configSchemaJSON)
	if err != nil {
		return Config{}, resourceErr("config", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return Config{}, formatErr("config", err)
	}
	if err := sch.Validate(v); err != nil {
		return Config{}, usageErr("config", err)
	}

	cfg := Config{
		MemoryLimit:   defaultMemoryLimit,
		BufferSize:    defaultBufSize,
		SearchByteCap: MaxNeedleLen,
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, formatErr("config", err)
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = defaultMemoryLimit
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = defaultBufSize
	}
	if cfg.SearchByteCap == 0 {
		cfg.SearchByteCap = MaxNeedleLen
	}
	return cfg, nil
}
