package measure

import (
	"context"

	"github.com/google/uuid"

	"github.com/roman-kulish/vna-sparams/internal/touchstone"
)

// Journal records measurement runs and their data
type Journal interface {
	CreateRun(ctx context.Context, id uuid.UUID, address string, config any) error
	FinishRun(ctx context.Context, id uuid.UUID, identity, file string, size int64, runErr error) error
	StoreNetwork(ctx context.Context, id uuid.UUID, n *touchstone.Network) error
}
