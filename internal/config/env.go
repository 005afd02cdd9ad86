package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STAFFDRILL_"

// LoadEnv reads STAFFDRILL_<SECTION>_<KEY> variables into a FileConfig.
//
//	STAFFDRILL_PRACTICE_TIME_LIMIT_MS -> practice.time-limit-ms
//	STAFFDRILL_LOG_LEVEL              -> log.level
func LoadEnv() (FileConfig, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return FileConfig{}, fmt.Errorf("failed to load environment: %w", err)
	}
	var cfg FileConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "toml"}); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	return cfg, nil
}

// envKey maps a variable name to its TOML key path. The section is the first
// segment; the rest of the name is the hyphenated key.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + strings.ReplaceAll(key, "_", "-")
}
