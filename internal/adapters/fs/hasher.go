// Package fs hashes resource declarations and artifacts.
package fs

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes xxhash digests.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint hashes every declaration field that changes what gets installed.
// Dependencies, the agreement flag and removal policy are excluded.
func (h *Hasher) Fingerprint(r *domain.Resource) string {
	hasher := xxhash.New()

	writeField(hasher, r.Label.String())
	writeField(hasher, string(r.Kind))
	writeField(hasher, r.Source)
	writeField(hasher, r.Extension)
	writeField(hasher, r.Destination)
	writeField(hasher, r.Repository)
	writeField(hasher, strconv.FormatBool(r.Downloaded))
	writeList(hasher, r.Arguments)
	writeList(hasher, r.Packages)

	return fmt.Sprintf("%016x", hasher.Sum64())
}

// ComputeFileHash computes the xxhash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func writeField(hasher *xxhash.Digest, s string) {
	_, _ = hasher.WriteString(s)
	_, _ = hasher.Write([]byte{0})
}

// writeList keeps ["a b"] and ["a", "b"] distinct by writing the length first.
func writeList(hasher *xxhash.Digest, items []string) {
	writeField(hasher, strconv.Itoa(len(items)))
	for _, item := range items {
		writeField(hasher, item)
	}
}
