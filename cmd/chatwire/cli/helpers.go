package cli

import (
	"os"

	"github.com/chatwire/chatwire/internal/config"
)

// resolveDataDir returns the data directory from the --data-dir flag,
// the CHATWIRE_DATA_DIR env var, or ~/.chatwire as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("CHATWIRE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.chatwire"
}

// openKeyStore opens the JSON key store under the resolved data directory.
func openKeyStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}
