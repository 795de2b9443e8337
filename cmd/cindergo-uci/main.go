// Command cindergo-uci is a UCI chess engine front end: it loads engine
// defaults and an NNUE network, then speaks the UCI protocol over stdin/
// stdout until told to quit.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/rwbc/cindergo/internal/applog"
	"github.com/rwbc/cindergo/internal/config"
	"github.com/rwbc/cindergo/internal/engine"
	"github.com/rwbc/cindergo/internal/uci"
)

const defaultWeightsFile = "cindergo.nnue.zst"

var (
	configPath = flag.String("config", "cindergo.toml", "path to a TOML config file (optional)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			applog.Get("main").Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			applog.Get("main").Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	if err := config.Setup(*configPath); err != nil {
		applog.Get("main").Warningf("config: %v", err)
	}

	eng := engine.NewEngine(config.Settings.Engine.HashMB, config.Settings.Engine.Threads)

	if err := loadNNUE(eng); err != nil {
		applog.Get("main").Warningf("NNUE weights not loaded: %v (evaluation will be all-zero)", err)
	}

	uci.New(eng).Run()
}

// loadNNUE resolves the weights file from config, then a handful of
// conventional search paths, mirroring how the engine locates its network
// when run outside of a packaged install.
func loadNNUE(eng *engine.Engine) error {
	if p := config.Settings.Engine.NNUEPath; p != "" {
		return eng.LoadNNUE(p)
	}

	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(".", defaultWeightsFile),
		filepath.Join(home, ".cindergo", defaultWeightsFile),
		filepath.Join("/usr/local/share/cindergo", defaultWeightsFile),
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return eng.LoadNNUE(p)
		}
	}
	return os.ErrNotExist
}
