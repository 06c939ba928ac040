package cas

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/stall/internal/core/domain"
	"go.trai.ch/stall/internal/core/ports"
)

// NodeID is the unique identifier for the receipt store Graft node.
const NodeID graft.ID = "adapter.receipt_store"

func init() {
	graft.Register(graft.Node[ports.ReceiptStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ReceiptStore, error) {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			return NewStore(domain.DefaultReceiptsPath(home)), nil
		},
	})
}
