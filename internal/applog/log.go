// Package applog provides per-package loggers on top of
// github.com/op/go-logging, configured once with a shared stderr backend
// and format.
package applog

import (
	"os"
	"sync"

	logging "github.com/op/go-logging"
)

var format = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{module:-8.8s} %{level:-7.7s} %{message}`,
)

var (
	mu      sync.Mutex
	loggers = map[string]*logging.Logger{}
	backend = logging.AddModuleLevel(
		logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format),
	)
)

func init() {
	backend.SetLevel(logging.INFO, "")
}

// Get returns the logger for module, creating and caching it on first use.
// All loggers share one backend, so SetLevel affects every module at once.
func Get(module string) *logging.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[module]; ok {
		return l
	}
	l := logging.MustGetLogger(module)
	l.SetBackend(backend)
	loggers[module] = l
	return l
}

// SetLevel adjusts the verbosity of every logger obtained through Get.
func SetLevel(level logging.Level) {
	backend.SetLevel(level, "")
}
