// Package hashing derives stable string digests from values, for use as
// storage keys and for comparing cached entries.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"github.com/zeebo/xxh3"
)

// HashFunc turns a Hashable into a hex digest. Sha256 and Xxh3 are both
// HashFuncs.
type HashFunc func(hashable Hashable) (string, error)

// Hashable writes its contents into a hash.Hash.
type Hashable interface {
	UpdateHash(h hash.Hash) error
}

// Sha256 returns the hex-encoded SHA-256 digest of hashable.
func Sha256(hashable Hashable) (string, error) {
	return sum(sha256.New(), hashable)
}

// Xxh3 returns the hex-encoded XXH3 digest of hashable. It is fast
// and well distributed but not collision resistant against an adversary.
func Xxh3(hashable Hashable) (string, error) {
	return sum(xxh3.New(), hashable)
}

func sum(h hash.Hash, hashable Hashable) (string, error) {
	if err := hashable.UpdateHash(h); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashableString hashes the bytes of a string.
type HashableString string

func (s HashableString) String() string {
	return string(s)
}

func (s HashableString) UpdateHash(h hash.Hash) error {
	_, err := h.Write([]byte(s))

	return err
}

// HashableBytes hashes a byte slice as is.
type HashableBytes []byte

func (b HashableBytes) UpdateHash(h hash.Hash) error {
	_, err := h.Write(b)

	return err
}
