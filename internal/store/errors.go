package store

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	ErrInvalidOffer       = errors.New("invalid offer")
	ErrIdempotencyKeyUsed = errors.New("idempotency key already used for a different offer")
)
