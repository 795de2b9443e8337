// Package config loads optional engine defaults from a TOML file, falling
// back silently to built-in defaults when the file is absent.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rwbc/cindergo/internal/applog"
)

var log = applog.Get("config")

// Engine holds the tunables a deployment might want to override without a
// rebuild.
type Engine struct {
	HashMB  int    `toml:"hash_mb"`
	Threads int    `toml:"threads"`
	NNUEPath string `toml:"nnue_path"`
}

type settings struct {
	Engine Engine `toml:"engine"`
}

// Settings is the process-global configuration, populated by Setup.
var Settings = settings{
	Engine: Engine{
		HashMB:  64,
		Threads: 1,
	},
}

var initialized bool

// Setup reads path (if it exists) into Settings, overlaying the defaults
// above. Calling Setup more than once is a no-op. A missing file is not an
// error: the engine runs fine on defaults alone.
func Setup(path string) error {
	if initialized {
		return nil
	}
	initialized = true

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if _, err := toml.DecodeFile(path, &Settings); err != nil {
		log.Warningf("config: failed to parse %s: %v", path, err)
		return err
	}
	return nil
}
