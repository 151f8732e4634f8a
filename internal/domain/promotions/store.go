package promotions

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const promotionColumns = `
  id, tenant_id, code, COALESCE(description, ''), discount_percent, starts_at, ends_at, active, created_at`

func scanPromotion(row pgx.Row) (Promotion, error) {
	var p Promotion
	err := row.Scan(&p.ID, &p.TenantID, &p.Code, &p.Description, &p.DiscountPercent,
		&p.StartsAt, &p.EndsAt, &p.Active, &p.CreatedAt)
	return p, err
}

func (s *Store) List(ctx context.Context, tenantID string) ([]Promotion, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+promotionColumns+`
    FROM promotions
    WHERE tenant_id = $1
    ORDER BY starts_at DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promotions []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

func (s *Store) Get(ctx context.Context, tenantID, promotionID string) (Promotion, error) {
	return scanPromotion(s.DB.QueryRow(ctx, `
    SELECT `+promotionColumns+`
    FROM promotions
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, promotionID))
}

// FindByCode looks up a promotion by its code, case-insensitively.
func (s *Store) FindByCode(ctx context.Context, tenantID, code string) (Promotion, error) {
	return scanPromotion(s.DB.QueryRow(ctx, `
    SELECT `+promotionColumns+`
    FROM promotions
    WHERE tenant_id = $1 AND code = $2
  `, tenantID, strings.ToUpper(strings.TrimSpace(code))))
}

func (s *Store) Create(ctx context.Context, tenantID string, p Promotion) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO promotions (tenant_id, code, description, discount_percent, starts_at, ends_at, active)
    VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
    RETURNING id
  `, tenantID, strings.ToUpper(strings.TrimSpace(p.Code)), p.Description, p.DiscountPercent,
		p.StartsAt, p.EndsAt, p.Active).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, tenantID, promotionID string, p Promotion) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE promotions
    SET description = NULLIF($1, ''), discount_percent = $2, starts_at = $3, ends_at = $4, active = $5
    WHERE tenant_id = $6 AND id = $7
  `, p.Description, p.DiscountPercent, p.StartsAt, p.EndsAt, p.Active, tenantID, promotionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, promotionID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM promotions WHERE tenant_id = $1 AND id = $2", tenantID, promotionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
