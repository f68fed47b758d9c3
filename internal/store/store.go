package store

import (
	"context"

	"github.com/hyperengineering/startupshop/internal/types"
)

// Store persists offers and the metrics snapshot history.
type Store interface {
	// CreateOffer inserts an offer. When IdempotencyKey is set and an offer
	// with that key exists, the existing offer is returned with replayed=true.
	CreateOffer(ctx context.Context, offer types.NewOffer) (created *types.Offer, replayed bool, err error)

	// ListOffers returns up to limit offers, newest first.
	ListOffers(ctx context.Context, limit int) ([]types.Offer, error)

	// InsertSnapshot appends a snapshot row. ID and FetchedAt are assigned
	// when empty.
	InsertSnapshot(ctx context.Context, snap *types.MetricsSnapshot) error

	// LatestSuccessfulSnapshot returns the newest successful snapshot for a
	// startup, or ErrNotFound.
	LatestSuccessfulSnapshot(ctx context.Context, startupID string) (*types.MetricsSnapshot, error)

	Ping(ctx context.Context) error
	Close() error
}
