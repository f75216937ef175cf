package stdsql

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// OpenFunc opens a factory for one named driver.
type OpenFunc func(dsn string, logger *slog.Logger) (*Factory, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register registers a named driver. Called by driver packages in their
// init() functions.
func Register(name string, fn OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = fn
}

// Open opens a factory by registered driver name.
func Open(name, dsn string, logger *slog.Logger) (*Factory, error) {
	driversMu.RLock()
	fn, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (registered: %v)", name, Drivers())
	}
	return fn(dsn, logger)
}

// Drivers returns all registered driver names (sorted).
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
