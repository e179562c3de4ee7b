package utils

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// HashReader returns the hex sha256 of everything left in r.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("HashReader: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// GetFileHash hashes a local file, used to tell whether an import source
// changed since the last run.
func GetFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("GetFileHash: %w", err)
	}
	defer f.Close()

	hash, err := HashReader(f)
	if err != nil {
		return "", fmt.Errorf("GetFileHash: %w", err)
	}
	return hash, nil
}
