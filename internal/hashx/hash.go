// Package hashx provides the deterministic one-way hash applied to stored
// passwords, confirmation values and token material.
//
// The digest is salted at configuration level and is intentionally
// repeatable: identical input always yields an identical digest, which is
// what lets confirmation matching and token re-derivation work without a
// stored secret.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const defaultIterations = 4096

type Hasher struct {
	salt []byte
	iter int
}

func New(salt string) *Hasher {
	return &Hasher{salt: []byte(salt), iter: defaultIterations}
}

// Sum returns the hex-encoded digest of value.
func (h *Hasher) Sum(value string) string {
	key := pbkdf2.Key([]byte(value), h.salt, h.iter, 32, sha256.New)
	return hex.EncodeToString(key)
}
