package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDirFor creates the directory that will hold the database file named
// by dsn. URI and in-memory DSNs are left alone.
func EnsureDirFor(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}

	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
