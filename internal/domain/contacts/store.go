package contacts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListContacts(ctx context.Context, tenantID string, limit, offset int) ([]Contact, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, email, first_name, last_name, COALESCE(phone, ''), subscribed, created_at, updated_at
    FROM contacts
    WHERE tenant_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.Subscribed, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *Store) GetContact(ctx context.Context, tenantID, contactID string) (Contact, error) {
	var c Contact
	err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, email, first_name, last_name, COALESCE(phone, ''), subscribed, created_at, updated_at
    FROM contacts
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, contactID).Scan(&c.ID, &c.TenantID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.Subscribed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	tags, err := s.contactTags(ctx, tenantID, contactID)
	if err != nil {
		return Contact{}, err
	}
	c.Tags = tags
	return c, nil
}

func (s *Store) CreateContact(ctx context.Context, tenantID, email, firstName, lastName, phone string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO contacts (tenant_id, email, first_name, last_name, phone, subscribed)
    VALUES ($1, $2, $3, $4, NULLIF($5, ''), true)
    RETURNING id
  `, tenantID, email, firstName, lastName, phone).Scan(&id)
	return id, err
}

func (s *Store) UpdateContact(ctx context.Context, tenantID, contactID, firstName, lastName, phone string, subscribed bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE contacts
    SET first_name = $1, last_name = $2, phone = NULLIF($3, ''), subscribed = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6
  `, firstName, lastName, phone, subscribed, tenantID, contactID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteContact(ctx context.Context, tenantID, contactID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM contacts WHERE tenant_id = $1 AND id = $2", tenantID, contactID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) contactTags(ctx context.Context, tenantID, contactID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT t.name
    FROM contact_tags ct
    JOIN tags t ON ct.tag_id = t.id
    WHERE t.tenant_id = $1 AND ct.contact_id = $2
    ORDER BY t.name
  `, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
