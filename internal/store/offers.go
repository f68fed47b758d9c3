package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/hyperengineering/startupshop/internal/types"
)

const offerColumns = `id, startup_id, buyer_name, buyer_email, offer_amount_usd, message, created_at`

// CreateOffer stores a new offer. A repeated idempotency key returns the
// offer stored first, or ErrIdempotencyKeyUsed when the payload differs.
func (s *SQLStore) CreateOffer(ctx context.Context, in types.NewOffer) (*types.Offer, bool, error) {
	if in.StartupID == "" {
		return nil, false, fmt.Errorf("%w: startup_id is required", ErrInvalidOffer)
	}

	if in.IdempotencyKey != "" {
		existing, err := s.offerByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil {
			return replay(existing, in)
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	offer := &types.Offer{
		ID:             ulid.Make().String(),
		StartupID:      in.StartupID,
		BuyerName:      in.BuyerName,
		BuyerEmail:     in.BuyerEmail,
		OfferAmountUSD: in.OfferAmountUSD,
		Message:        in.Message,
		CreatedAt:      s.now().UTC(),
	}

	var key sql.NullString
	if in.IdempotencyKey != "" {
		key = sql.NullString{String: in.IdempotencyKey, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO offers (id, startup_id, buyer_name, buyer_email, offer_amount_usd, message, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), offer.ID, offer.StartupID, offer.BuyerName, offer.BuyerEmail, offer.OfferAmountUSD.String(), offer.Message, key, formatTime(offer.CreatedAt))
	if err != nil {
		// A concurrent request may have claimed the key first.
		if key.Valid {
			if existing, lookupErr := s.offerByIdempotencyKey(ctx, key.String); lookupErr == nil {
				return replay(existing, in)
			}
		}
		return nil, false, fmt.Errorf("insert offer: %w", err)
	}

	return offer, false, nil
}

func replay(existing *types.Offer, in types.NewOffer) (*types.Offer, bool, error) {
	if !existing.Matches(in.OfferPayload) {
		return nil, false, ErrIdempotencyKeyUsed
	}
	return existing, true, nil
}

// ListOffers returns up to limit offers, newest first.
func (s *SQLStore) ListOffers(ctx context.Context, limit int) ([]types.Offer, error) {
	if limit <= 0 {
		return []types.Offer{}, nil
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+offerColumns+`
		FROM offers
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	offers := []types.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return offers, nil
}

func (s *SQLStore) offerByIdempotencyKey(ctx context.Context, key string) (*types.Offer, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+offerColumns+`
		FROM offers
		WHERE idempotency_key = ?
	`), key)

	o, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return o, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*types.Offer, error) {
	var (
		o         types.Offer
		amount    string
		createdAt string
	)
	if err := row.Scan(&o.ID, &o.StartupID, &o.BuyerName, &o.BuyerEmail, &amount, &o.Message, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan offer: %w", err)
	}

	var err error
	if o.OfferAmountUSD, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse offer amount: %w", err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &o, nil
}
