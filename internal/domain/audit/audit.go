package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Actions recorded in the audit trail.
const (
	ActionPermissionOverrideSet   = "permission.override.set"
	ActionPermissionOverrideReset = "permission.override.reset"
	ActionUserRoleChanged         = "user.role.changed"
	ActionUserCreated             = "user.created"
	ActionUserDeleted             = "user.deleted"
	ActionPlanChanged             = "billing.plan.changed"
	ActionCampaignSent            = "campaign.sent"
)

type Event struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	ActorID   string          `json:"actorId,omitempty"`
	Action    string          `json:"action"`
	Subject   string          `json:"subject,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Record writes an audit event. Failures are logged, never propagated:
// an audit hiccup must not fail the action being audited.
func (s *Store) Record(ctx context.Context, tenantID, actorID, action, subject string, details any) {
	if s == nil || s.DB == nil {
		return
	}
	var raw []byte
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			slog.Warn("marshal audit details", "action", action, "error", err)
			raw = nil
		}
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_id, action, subject, details)
    VALUES ($1, NULLIF($2, '')::uuid, $3, NULLIF($4, ''), $5)
  `, tenantID, actorID, action, subject, raw)
	if err != nil {
		slog.Warn("record audit event", "action", action, "tenantId", tenantID, "error", err)
	}
}

func (s *Store) List(ctx context.Context, tenantID string, limit, offset int) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, COALESCE(actor_id::text, ''), action, COALESCE(subject, ''), details, created_at
    FROM audit_events
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.Subject, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
