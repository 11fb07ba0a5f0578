package store

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// DefaultChecksumAlgorithm is used if Checksum is called with an empty algorithm
const DefaultChecksumAlgorithm = "sha1"

var hashes = map[string]func() hash.Hash{
	"md5":         md5.New,
	"sha1":        sha1.New,
	"sha224":      sha256.New224,
	"sha256":      sha256.New,
	"sha384":      sha512.New384,
	"sha512":      sha512.New,
	"sha3-256":    sha3.New256,
	"sha3-512":    sha3.New512,
	"blake2b-256": func() hash.Hash { h, _ := blake2b.New256(nil); return h },
	"blake2b-512": func() hash.Hash { h, _ := blake2b.New512(nil); return h },
}

// ChecksumAlgorithms lists the supported algorithm names
func ChecksumAlgorithms() []string {
	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MakeChecksum hashes everything read from r and returns the lowercase hex digest.
// The input is read in chunks of 128 hash blocks.
func MakeChecksum(r io.Reader, algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = DefaultChecksumAlgorithm
	}
	newHash, ok := hashes[strings.ToLower(algorithm)]
	if !ok {
		return "", NewError(RetCUnsupportedOperation, algorithm, "unknown checksum algorithm (expected one of "+strings.Join(ChecksumAlgorithms(), ", ")+")")
	}
	h := newHash()
	if _, err := io.CopyBuffer(h, r, make([]byte, 128*h.BlockSize())); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Checksum streams the raw value of key through the hash algorithm (default sha1).
// A missing key is always an ErrNotFound.
func (s *Store) Checksum(ctx context.Context, key, algorithm string) (sum string, err error) {
	defer s.track("checksum", time.Now(), &err)

	r, err := s.open(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()

	sum, err = MakeChecksum(r, algorithm)
	return sum, wrapError(key, err)
}
