package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"bizdesk/internal/domain/auth"
	"bizdesk/internal/domain/billing"
	"bizdesk/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePlans(ctx, pool); err != nil {
		return err
	}

	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName)
	if err != nil {
		return err
	}

	if err := ensureSubscription(ctx, pool, tenantID, billing.PlanFree); err != nil {
		return err
	}

	if cfg.SeedOwnerEmail != "" {
		if err := ensureOwner(ctx, pool, tenantID, cfg.SeedOwnerEmail, cfg.SeedOwnerPassword); err != nil {
			return err
		}
	}

	return nil
}

func ensurePlans(ctx context.Context, pool *pgxpool.Pool) error {
	for _, plan := range billing.DefaultPlans() {
		_, err := pool.Exec(ctx, `
      INSERT INTO plans (code, name, user_limit, contact_limit, email_limit_monthly, price_cents)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (code) DO UPDATE
      SET name = EXCLUDED.name,
          user_limit = EXCLUDED.user_limit,
          contact_limit = EXCLUDED.contact_limit,
          email_limit_monthly = EXCLUDED.email_limit_monthly,
          price_cents = EXCLUDED.price_cents
    `, plan.Code, plan.Name, plan.UserLimit, plan.ContactLimit, plan.EmailLimitMonthly, plan.PriceCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureSubscription(ctx context.Context, pool *pgxpool.Pool, tenantID, planCode string) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO subscriptions (tenant_id, plan_code, status, current_period_start, current_period_end)
    VALUES ($1, $2, 'active', now(), now() + interval '30 days')
    ON CONFLICT (tenant_id) DO NOTHING
  `, tenantID, planCode)
	return err
}

func ensureOwner(ctx context.Context, pool *pgxpool.Pool, tenantID, email, password string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (tenant_id, email, name, role, password_hash, status)
    VALUES ($1, $2, 'Owner', $3, $4, 'active')
  `, tenantID, email, auth.RoleOwner, hash)
	return err
}
