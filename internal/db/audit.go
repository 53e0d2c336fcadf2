package db

import (
	"context"
	"time"
)

// Audit actions and statuses.
const (
	ActionSync   = "SYNC"
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"

	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// AuditLog is one append-only record of an administrative or sync action.
type AuditLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Details     string    `json:"details"`
	PerformedAt time.Time `json:"performedAt"`
}

const appendAuditSQL = `
INSERT INTO audit_logs (action, status, details, performed_at)
VALUES ($1, $2, $3, NOW())`

// AppendAudit writes one audit entry.
func (s *Store) AppendAudit(ctx context.Context, action, status, details string) error {
	_, err := s.pool.Exec(ctx, appendAuditSQL, action, status, details)
	return err
}

const lastSyncSQL = `
SELECT id, action, status, details, performed_at
FROM audit_logs
WHERE action = $1 AND status = $2
ORDER BY performed_at DESC
LIMIT 1`

// LastSync returns the newest successful sync audit entry, or ErrNotFound
// when no sync has completed yet.
func (s *Store) LastSync(ctx context.Context) (AuditLog, error) {
	row := s.pool.QueryRow(ctx, lastSyncSQL, ActionSync, StatusSuccess)

	var entry AuditLog
	if err := row.Scan(&entry.ID, &entry.Action, &entry.Status, &entry.Details, &entry.PerformedAt); err != nil {
		return AuditLog{}, mapRowError(err)
	}
	return entry, nil
}
