// Package cas stores install receipts as one JSON file per resource.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store implements ports.ReceiptStore using a file-per-label strategy.
type Store struct {
	dir string
}

var _ ports.ReceiptStore = (*Store)(nil)

// NewStore creates a ReceiptStore rooted at dir. The directory is created on first Put.
func NewStore(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Get retrieves the receipt for label, or nil when none exists.
func (s *Store) Get(label string) (*domain.Receipt, error) {
	filename := s.filename(label)
	data, err := os.ReadFile(filename) //nolint:gosec // path is built from the store dir and a hash
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "label", label)
	}

	var receipt domain.Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "label", label)
	}

	return &receipt, nil
}

// Put stores receipt, replacing any previous receipt for the same label.
func (s *Store) Put(receipt domain.Receipt) error {
	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	filename := s.filename(receipt.Label)
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "label", receipt.Label)
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "label", receipt.Label)
	}

	return nil
}

// Clear removes the receipt directory.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove receipts"), "path", s.dir)
	}
	return nil
}

func (s *Store) filename(label string) string {
	hash := sha256.Sum256([]byte(label))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
