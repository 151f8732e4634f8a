package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OverrideSchemaVersion tags stored override documents so future permission
// key renames can be migrated deliberately instead of silently merged.
const OverrideSchemaVersion = 1

var ErrOverrideNotFound = errors.New("permission override not found")

// OverrideDocument is the persisted per-(tenant, role) customization of the
// default permission matrix.
type OverrideDocument struct {
	Version int             `json:"version"`
	Grants  map[string]bool `json:"grants"`
}

type OverrideStore interface {
	GetOverride(ctx context.Context, tenantID string, role Role) (OverrideDocument, error)
	UpsertOverride(ctx context.Context, tenantID string, role Role, doc OverrideDocument) error
	// DeleteOverrides removes override rows for a tenant. An empty role
	// clears every role; the operation is idempotent either way.
	DeleteOverrides(ctx context.Context, tenantID string, role Role) error
	ListOverrides(ctx context.Context, tenantID string) (map[Role]OverrideDocument, error)
}

// Overrides is the pgx-backed OverrideStore.
type Overrides struct {
	DB *pgxpool.Pool
}

func NewOverrides(db *pgxpool.Pool) *Overrides {
	return &Overrides{DB: db}
}

func (s *Overrides) GetOverride(ctx context.Context, tenantID string, role Role) (OverrideDocument, error) {
	var doc OverrideDocument
	var raw []byte
	err := s.DB.QueryRow(ctx, `
    SELECT version, grants_json
    FROM permission_overrides
    WHERE tenant_id = $1 AND role = $2
  `, tenantID, role).Scan(&doc.Version, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return OverrideDocument{}, ErrOverrideNotFound
	}
	if err != nil {
		return OverrideDocument{}, err
	}
	if doc.Version != OverrideSchemaVersion {
		return OverrideDocument{}, fmt.Errorf("unsupported override version %d", doc.Version)
	}
	if err := json.Unmarshal(raw, &doc.Grants); err != nil {
		return OverrideDocument{}, fmt.Errorf("malformed override payload: %w", err)
	}
	return doc, nil
}

func (s *Overrides) UpsertOverride(ctx context.Context, tenantID string, role Role, doc OverrideDocument) error {
	raw, err := json.Marshal(doc.Grants)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO permission_overrides (tenant_id, role, version, grants_json, updated_at)
    VALUES ($1, $2, $3, $4, now())
    ON CONFLICT (tenant_id, role)
    DO UPDATE SET version = EXCLUDED.version, grants_json = EXCLUDED.grants_json, updated_at = now()
  `, tenantID, role, doc.Version, raw)
	return err
}

func (s *Overrides) DeleteOverrides(ctx context.Context, tenantID string, role Role) error {
	if role == "" {
		_, err := s.DB.Exec(ctx, "DELETE FROM permission_overrides WHERE tenant_id = $1", tenantID)
		return err
	}
	_, err := s.DB.Exec(ctx, "DELETE FROM permission_overrides WHERE tenant_id = $1 AND role = $2", tenantID, role)
	return err
}

func (s *Overrides) ListOverrides(ctx context.Context, tenantID string) (map[Role]OverrideDocument, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT role, version, grants_json
    FROM permission_overrides
    WHERE tenant_id = $1
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Role]OverrideDocument{}
	for rows.Next() {
		var role Role
		var doc OverrideDocument
		var raw []byte
		if err := rows.Scan(&role, &doc.Version, &raw); err != nil {
			return nil, err
		}
		if doc.Version != OverrideSchemaVersion {
			continue
		}
		if err := json.Unmarshal(raw, &doc.Grants); err != nil {
			continue
		}
		out[role] = doc
	}
	return out, rows.Err()
}
