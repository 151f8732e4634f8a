package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/billing"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (Tenant, error) {
	var t Tenant
	err := s.DB.QueryRow(ctx, "SELECT id, name, created_at FROM tenants WHERE id = $1", tenantID).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	return t, err
}

func (s *Store) ListUsers(ctx context.Context, tenantID string, limit, offset int) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, email, name, role, status, last_login, created_at
    FROM users
    WHERE tenant_id = $1
    ORDER BY created_at
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.Status, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, email, name, role, status, last_login, created_at
    FROM users
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, userID).Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.Status, &u.LastLogin, &u.CreatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, tenantID, email, name string, role auth.Role, passwordHash string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, name, role, password_hash, status)
    VALUES ($1, $2, $3, $4, $5, 'active')
    RETURNING id
  `, tenantID, email, name, role, passwordHash).Scan(&id)
	return id, err
}

func (s *Store) UpdateUser(ctx context.Context, tenantID, userID, name string, role auth.Role, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET name = $1, role = $2, status = $3, updated_at = now()
    WHERE tenant_id = $4 AND id = $5
  `, name, role, status, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, tenantID, userID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM users WHERE tenant_id = $1 AND id = $2", tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ProvisionTenant creates the tenant, its Owner account and a free
// subscription in one transaction. Used by signup confirmation.
func (s *Store) ProvisionTenant(ctx context.Context, name, ownerEmail, ownerPasswordHash string) (string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tenantID string
	if err := tx.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&tenantID); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO users (tenant_id, email, name, role, password_hash, status)
    VALUES ($1, $2, 'Owner', $3, $4, 'active')
  `, tenantID, ownerEmail, auth.RoleOwner, ownerPasswordHash); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO subscriptions (tenant_id, plan_code, status, current_period_start, current_period_end)
    VALUES ($1, $2, 'active', now(), now() + interval '30 days')
  `, tenantID, billing.PlanFree); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return tenantID, nil
}

// LimitOverride, PlanLimit and Usage implement LimitStore.

func (s *Store) LimitOverride(ctx context.Context, tenantID string, kind LimitKind) (*LimitOverride, error) {
	var override LimitOverride
	override.Kind = kind
	err := s.DB.QueryRow(ctx, `
    SELECT limit_value, expires_at
    FROM tenant_limit_overrides
    WHERE tenant_id = $1 AND kind = $2
  `, tenantID, kind).Scan(&override.Limit, &override.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (s *Store) PlanLimit(ctx context.Context, tenantID string, kind LimitKind) (int, bool, error) {
	var userLimit, contactLimit, emailLimit int
	err := s.DB.QueryRow(ctx, `
    SELECT p.user_limit, p.contact_limit, p.email_limit_monthly
    FROM subscriptions s
    JOIN plans p ON s.plan_code = p.code
    WHERE s.tenant_id = $1 AND s.status = 'active'
  `, tenantID).Scan(&userLimit, &contactLimit, &emailLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	switch kind {
	case LimitUsers:
		return userLimit, true, nil
	case LimitContacts:
		return contactLimit, true, nil
	case LimitEmails:
		return emailLimit, true, nil
	}
	return 0, false, nil
}

func (s *Store) Usage(ctx context.Context, tenantID string, kind LimitKind) (int, error) {
	var query string
	switch kind {
	case LimitUsers:
		query = "SELECT COUNT(1) FROM users WHERE tenant_id = $1 AND status = 'active'"
	case LimitContacts:
		query = "SELECT COUNT(1) FROM contacts WHERE tenant_id = $1"
	case LimitEmails:
		query = "SELECT COUNT(1) FROM email_log WHERE tenant_id = $1 AND sent_at >= date_trunc('month', now())"
	default:
		return 0, nil
	}
	var count int
	err := s.DB.QueryRow(ctx, query, tenantID).Scan(&count)
	return count, err
}
