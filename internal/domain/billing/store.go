package billing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Subscription struct {
	TenantID           string    `json:"tenantId"`
	PlanCode           string    `json:"planCode"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT code, name, user_limit, contact_limit, email_limit_monthly, price_cents
    FROM plans
    ORDER BY price_cents
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.Code, &p.Name, &p.UserLimit, &p.ContactLimit, &p.EmailLimitMonthly, &p.PriceCents); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *Store) GetSubscription(ctx context.Context, tenantID string) (Subscription, error) {
	var sub Subscription
	err := s.DB.QueryRow(ctx, `
    SELECT tenant_id, plan_code, status, current_period_start, current_period_end
    FROM subscriptions
    WHERE tenant_id = $1
  `, tenantID).Scan(&sub.TenantID, &sub.PlanCode, &sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd)
	return sub, err
}

func (s *Store) ChangePlan(ctx context.Context, tenantID, planCode string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO subscriptions (tenant_id, plan_code, status, current_period_start, current_period_end)
    VALUES ($1, $2, 'active', now(), now() + interval '30 days')
    ON CONFLICT (tenant_id)
    DO UPDATE SET plan_code = EXCLUDED.plan_code, status = 'active',
                  current_period_start = now(), current_period_end = now() + interval '30 days'
  `, tenantID, planCode)
	return err
}
