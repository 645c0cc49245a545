// Package config loads buffer.Config (plus the disk file path) from the
// process environment for cmd/bufdemo, using
// github.com/kelseyhightower/envconfig. Library code and tests always
// construct buffer.Config directly; this loader is additive, for the demo
// binary only.
package config

import (
	"github.com/kelseyhightower/envconfig"

	"github.com/eddyli1989/bustub/buffer"
)

// Env holds the environment-driven settings for cmd/bufdemo, prefixed
// BUSTUB_ (e.g. BUSTUB_POOL_SIZE, BUSTUB_REPLACER_K, BUSTUB_DB_FILE).
type Env struct {
	PoolSize  int    `envconfig:"pool_size" default:"32"`
	ReplacerK int    `envconfig:"replacer_k" default:"5"`
	DBFile    string `envconfig:"db_file" default:"bufdemo.db"`
}

// Load reads Env from the process environment.
func Load() (Env, error) {
	var e Env
	if err := envconfig.Process("bustub", &e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// BufferConfig converts Env's pool-sizing fields into a buffer.Config.
func (e Env) BufferConfig() buffer.Config {
	return buffer.Config{PoolSize: e.PoolSize, ReplacerK: e.ReplacerK}
}
