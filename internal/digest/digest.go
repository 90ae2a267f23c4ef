// Package digest computes content digests used for change comparison.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File returns the SHA-256 digest of the file content as lowercase hex.
// The digest is deterministic across runs and platforms, which the persisted
// snapshot comparison depends on.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash file content: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
