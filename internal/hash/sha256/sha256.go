// Package sha256 provides the SHA-256 content fingerprinter.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// DigestLen is the length of a rendered digest (64 lowercase hex characters).
const DigestLen = sha256.Size * 2

// Fingerprinter implements watcher.Hasher using SHA-256.
type Fingerprinter struct{}

// New returns a SHA-256 fingerprinter.
func New() *Fingerprinter {
	return &Fingerprinter{}
}

// Digest hashes normalized content and returns the lowercase hex digest.
func (f *Fingerprinter) Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

