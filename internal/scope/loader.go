package scope

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/redcell-ai/redcell/internal/types"
)

// Load reads a scope configuration from a JSON file. It returns a typed
// error when the file is missing or malformed; callers that want a
// default-policy fallback should use LoadSafe.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, types.WrapError(types.SCOPE_NOT_FOUND, "scope file not found", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.SCOPE_PARSE_FAILED, "failed to read scope file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.SCOPE_PARSE_FAILED, "failed to unmarshal scope file", err)
	}

	return &cfg, nil
}

// LoadSafe reads a scope configuration, returning nil instead of an error
// when the file is missing or malformed so callers can fall back to
// default policy.
func LoadSafe(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return nil
	}
	return cfg
}

// Save writes a scope configuration to a JSON file, creating parent
// directories as needed.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.WrapError(types.SCOPE_PARSE_FAILED, "failed to create scope directory", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return types.WrapError(types.SCOPE_PARSE_FAILED, "failed to marshal scope config", err)
	}
	data = append(data, '\n')

	return os.WriteFile(path, data, 0o644)
}
