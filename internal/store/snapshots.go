package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/startupshop/internal/types"
)

// InsertSnapshot appends a metrics snapshot row.
func (s *SQLStore) InsertSnapshot(ctx context.Context, snap *types.MetricsSnapshot) error {
	if snap.ID == "" {
		snap.ID = ulid.Make().String()
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = s.now()
	}
	snap.FetchedAt = snap.FetchedAt.UTC()

	var (
		payload sql.NullString
		status  sql.NullInt64
		errMsg  sql.NullString
	)
	if snap.Payload != nil {
		payload = sql.NullString{String: string(snap.Payload), Valid: true}
	}
	if snap.SourceStatus != 0 {
		status = sql.NullInt64{Int64: int64(snap.SourceStatus), Valid: true}
	}
	if snap.ErrorMessage != "" {
		errMsg = sql.NullString{String: snap.ErrorMessage, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO metrics_snapshots (id, startup_id, fetched_at, payload, source_status, success, error_message, fetched_via)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), snap.ID, snap.StartupID, formatTime(snap.FetchedAt), payload, status, snap.Success, errMsg, string(snap.FetchedVia))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// LatestSuccessfulSnapshot returns the newest successful snapshot for startupID.
func (s *SQLStore) LatestSuccessfulSnapshot(ctx context.Context, startupID string) (*types.MetricsSnapshot, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, startup_id, fetched_at, payload, source_status, success, error_message, fetched_via
		FROM metrics_snapshots
		WHERE startup_id = ? AND success = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`), startupID, true)

	var (
		snap      types.MetricsSnapshot
		fetchedAt string
		payload   sql.NullString
		status    sql.NullInt64
		errMsg    sql.NullString
		via       string
	)
	err := row.Scan(&snap.ID, &snap.StartupID, &fetchedAt, &payload, &status, &snap.Success, &errMsg, &via)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	if snap.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		snap.Payload = json.RawMessage(payload.String)
	}
	snap.SourceStatus = int(status.Int64)
	snap.ErrorMessage = errMsg.String
	snap.FetchedVia = types.FetchVia(via)
	return &snap, nil
}
