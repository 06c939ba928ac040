package ports

import "go.trai.ch/stall/internal/core/domain"

// ReceiptStore defines the interface for storing and retrieving install receipts.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ReceiptStore interface {
	// Get retrieves the receipt for a label.
	// Returns nil, nil if not found.
	Get(label string) (*domain.Receipt, error)

	// Put stores the receipt.
	Put(receipt domain.Receipt) error

	// Clear removes every receipt.
	Clear() error
}
