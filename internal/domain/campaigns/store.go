package campaigns

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const campaignColumns = `
  id, tenant_id, name, subject, body, list_id, status,
  scheduled_at, sent_at, sent_count, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Subject, &c.Body, &c.ListID, &c.Status,
		&c.ScheduledAt, &c.SentAt, &c.SentCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCampaigns(ctx context.Context, tenantID string, limit, offset int) ([]Campaign, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+campaignColumns+`
    FROM campaigns
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (s *Store) GetCampaign(ctx context.Context, tenantID, campaignID string) (Campaign, error) {
	return scanCampaign(s.DB.QueryRow(ctx, `
    SELECT `+campaignColumns+`
    FROM campaigns
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, campaignID))
}

func (s *Store) CreateCampaign(ctx context.Context, tenantID, name, subject, body, listID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO campaigns (tenant_id, name, subject, body, list_id, status)
    VALUES ($1, $2, $3, $4, $5, 'draft')
    RETURNING id
  `, tenantID, name, subject, body, listID).Scan(&id)
	return id, err
}

func (s *Store) UpdateCampaign(ctx context.Context, tenantID, campaignID, name, subject, body, listID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE campaigns
    SET name = $1, subject = $2, body = $3, list_id = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = 'draft'
  `, name, subject, body, listID, tenantID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteCampaign(ctx context.Context, tenantID, campaignID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM campaigns WHERE tenant_id = $1 AND id = $2", tenantID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkSending flips a draft or due scheduled campaign to sending. The
// status condition makes concurrent dispatchers race safely: only one
// transition wins.
func (s *Store) MarkSending(ctx context.Context, tenantID, campaignID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE campaigns SET status = 'sending', updated_at = now()
    WHERE tenant_id = $1 AND id = $2 AND status IN ('draft', 'scheduled')
  `, tenantID, campaignID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkSent(ctx context.Context, tenantID, campaignID string, sentCount int) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE campaigns SET status = 'sent', sent_at = now(), sent_count = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, sentCount, tenantID, campaignID)
	return err
}

func (s *Store) Schedule(ctx context.Context, tenantID, campaignID string, at time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE campaigns SET status = 'scheduled', scheduled_at = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = 'draft'
  `, at, tenantID, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListDue returns scheduled campaigns whose send time has passed, across
// all tenants, for the background dispatcher.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]Campaign, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+campaignColumns+`
    FROM campaigns
    WHERE status = 'scheduled' AND scheduled_at <= $1
    ORDER BY scheduled_at
  `, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// RecordEmails appends to the monthly email quota ledger.
func (s *Store) RecordEmails(ctx context.Context, tenantID, campaignID string, recipients []string) error {
	for _, recipient := range recipients {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO email_log (tenant_id, campaign_id, recipient)
      VALUES ($1, $2, $3)
    `, tenantID, campaignID, recipient); err != nil {
			return err
		}
	}
	return nil
}
