// Package checksum implements structural digest validation and file
// digest computation for the artifact retrieval pipeline. Validation is
// purely structural (length and hex alphabet); it catches truncated
// fetches, scrape garbage, and injected content before any trust is
// extended, and it runs before every expensive operation.
package checksum

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/joshjhall/artifact-fetcher/internal/fetcherrors"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// ParseAlgorithm maps a string tag onto an Algorithm.
func ParseAlgorithm(tag string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(tag))) {
	case SHA1:
		return SHA1, nil
	case SHA256:
		return SHA256, nil
	case SHA512:
		return SHA512, nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q (want sha1, sha256 or sha512)", tag)
	}
}

// HexLength returns the expected hex digest length, or 0 for an unknown
// algorithm.
func (a Algorithm) HexLength() int {
	switch a {
	case SHA1:
		return 40
	case SHA256:
		return 64
	case SHA512:
		return 128
	}
	return 0
}

// NewHash returns a fresh hash.Hash for the algorithm.
func (a Algorithm) NewHash() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported checksum algorithm %q", string(a))
}

// InferAlgorithm guesses the algorithm from a digest's length. Returns
// "" when the length matches no supported algorithm. Used by checksum
// sources to detect strength downgrades before validation.
func InferAlgorithm(digest string) Algorithm {
	switch len(digest) {
	case 40:
		return SHA1
	case 64:
		return SHA256
	case 128:
		return SHA512
	}
	return ""
}

// Validate checks that digest is structurally well-formed for the
// algorithm. The empty string always fails. No I/O, no cryptography.
func Validate(digest string, algo Algorithm) error {
	want := algo.HexLength()
	if want == 0 {
		return &fetcherrors.InvalidChecksumFormatError{
			Digest:    digest,
			Algorithm: string(algo),
			Reason:    "unsupported algorithm",
		}
	}
	if digest == "" {
		return &fetcherrors.InvalidChecksumFormatError{
			Digest:    digest,
			Algorithm: string(algo),
			Reason:    "empty digest",
		}
	}
	if len(digest) != want {
		return &fetcherrors.InvalidChecksumFormatError{
			Digest:    digest,
			Algorithm: string(algo),
			Reason:    fmt.Sprintf("length %d, want %d", len(digest), want),
		}
	}
	for _, r := range digest {
		if !isHex(r) {
			return &fetcherrors.InvalidChecksumFormatError{
				Digest:    digest,
				Algorithm: string(algo),
				Reason:    fmt.Sprintf("non-hex character %q", r),
			}
		}
	}
	return nil
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// File computes the hex digest of the file at path.
func File(path string, algo Algorithm) (string, error) {
	h, err := algo.NewHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for digest: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
