package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/startupshop/internal/catalog"
	"github.com/hyperengineering/startupshop/internal/store"
	"github.com/hyperengineering/startupshop/internal/types"
	"github.com/hyperengineering/startupshop/internal/validation"
)

const (
	// MaxOfferBodyBytes is the largest accepted offer body.
	MaxOfferBodyBytes = 16 * 1024

	// MaxIdempotencyKeyLength bounds the Idempotency-Key header.
	MaxIdempotencyKeyLength = 255
)

// SubmitOffer handles POST /api/offers. Gates run in order and the first
// failure ends the request: rate limit, body size, JSON syntax, schema,
// known startup, persistence.
func (h *Handler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Rate limit by client key
	key := clientKey(r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"))
	decision := h.limiter.Check(ctx, key)
	annotate(ctx, func(ev *Event) {
		ev.LimiterSource = string(decision.Source)
		ev.Degraded = decision.Degraded
		ev.ErrorCode = decision.ErrorCode
	})
	if !decision.Allowed {
		code := decision.ErrorCode
		if code == "" {
			code = "rate_limit_exceeded"
		}
		WriteProblemCode(w, r, http.StatusTooManyRequests, code, "Rate limit exceeded. Try again later.")
		return
	}

	// 2. Body size
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxOfferBodyBytes+1))
	if err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_body", "Unable to read request body")
		return
	}
	if len(body) > MaxOfferBodyBytes {
		WriteProblemCode(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Payload too large")
		return
	}

	// 3. JSON syntax
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	// 4. Structure
	result := h.validator.Validate(validation.OfferSchema, doc)
	if !result.Valid {
		WriteProblemWithErrors(w, r, http.StatusBadRequest, "schema_validation_failed",
			"Offer payload validation failed", result.Errors)
		return
	}

	var payload types.OfferPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	annotate(ctx, func(ev *Event) { ev.StartupID = payload.StartupID })

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if len(idempotencyKey) > MaxIdempotencyKeyLength {
		WriteProblemCode(w, r, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
		return
	}

	// 5. Referential check
	if _, err := h.catalog.GetByID(ctx, payload.StartupID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			WriteProblemCode(w, r, http.StatusBadRequest, "unknown_startup", "Unknown startup_id")
			return
		}
		slog.Error("catalog lookup failed", "component", "api", "startup_id", payload.StartupID, "error", err)
		WriteProblemCode(w, r, http.StatusInternalServerError, "catalog_unavailable", "Internal Server Error")
		return
	}

	// 6. Persist
	offer, replayed, err := h.store.CreateOffer(ctx, types.NewOffer{
		OfferPayload:   payload,
		IdempotencyKey: idempotencyKey,
	})
	if errors.Is(err, store.ErrIdempotencyKeyUsed) {
		WriteProblemCode(w, r, http.StatusUnprocessableEntity, "idempotency_key_reused",
			"Idempotency-Key was already used for a different offer")
		return
	}
	if err != nil {
		slog.Error("offer persist failed",
			"component", "api",
			"action", "create_offer",
			"startup_id", payload.StartupID,
			"error", err,
		)
		WriteProblemCode(w, r, http.StatusInternalServerError, "db_write_failed", "Failed to persist offer")
		return
	}

	if replayed {
		w.Header().Set("X-Idempotent-Replay", "true")
		slog.Info("offer idempotent replay",
			"component", "api",
			"action", "create_offer_replay",
			"offer_id", offer.ID,
		)
	}
	writeData(w, http.StatusCreated, offer.Receipt())
}
