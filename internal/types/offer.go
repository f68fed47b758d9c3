package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferPayload is the buyer-submitted body of an offer.
type OfferPayload struct {
	StartupID      string          `json:"startup_id"`
	BuyerName      string          `json:"buyer_name"`
	BuyerEmail     string          `json:"buyer_email"`
	OfferAmountUSD decimal.Decimal `json:"offer_amount_usd"`
	Message        string          `json:"message"`
}

// NewOffer is the input for persisting an offer (without generated fields).
type NewOffer struct {
	OfferPayload
	IdempotencyKey string
}

// Offer is a persisted, immutable offer row.
type Offer struct {
	ID             string          `json:"id"`
	StartupID      string          `json:"startup_id"`
	BuyerName      string          `json:"buyer_name"`
	BuyerEmail     string          `json:"buyer_email"`
	OfferAmountUSD decimal.Decimal `json:"offer_amount_usd"`
	Message        string          `json:"message"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OfferReceipt is returned to the submitter after an offer is stored.
type OfferReceipt struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	StartupID string    `json:"startup_id"`
}

// Matches reports whether p carries the same offer as o.
func (o *Offer) Matches(p OfferPayload) bool {
	return o.StartupID == p.StartupID &&
		o.BuyerName == p.BuyerName &&
		o.BuyerEmail == p.BuyerEmail &&
		o.OfferAmountUSD.Equal(p.OfferAmountUSD) &&
		o.Message == p.Message
}

// Receipt returns the submitter-facing view of the offer.
func (o *Offer) Receipt() OfferReceipt {
	return OfferReceipt{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		StartupID: o.StartupID,
	}
}
