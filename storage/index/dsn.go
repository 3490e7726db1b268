package index

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	defaultFilePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"

	// MemoryPath opens a private in-memory index.
	MemoryPath = ":memory:"
)

// FileDSN converts a filesystem path into an on-disk SQLite DSN with sensible
// defaults.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	if trimmed == MemoryPath {
		return trimmed, nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve index path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}
