// Package integrity provides content checksums for blob payloads.
// Uploads attach a digest; downloads verify it when present.
package integrity

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/TheMichaelB/notesync/internal/models"
)

// Checksum returns the BLAKE2b-256 hex digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify checks data against an expected digest. An empty digest means
// the uploader attached none; that is not a failure.
func Verify(data []byte, expected string) error {
	if expected == "" {
		return nil
	}
	actual := Checksum(data)
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", models.ErrChecksumMismatch, expected, actual)
	}
	return nil
}
