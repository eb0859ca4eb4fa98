package cli

import (
	"fmt"

	"github.com/calvinalkan/kvs/pkg/kvlog"
)

// openStore opens the configured store. Every command opens for the
// duration of a single operation and closes on exit; the lock file keeps
// concurrent kvs invocations (or other processes) off the same log.
func openStore(cfg Config) (*kvlog.Store, error) {
	store, err := kvlog.OpenWithConfig(kvlog.Config{
		Path:             cfg.Path,
		CacheSize:        cfg.CacheSize,
		CompactThreshold: cfg.CompactThreshold,
		LockFile:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store at %q: %w", cfg.Path, err)
	}

	return store, nil
}
