package contacts

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListLists(ctx context.Context, tenantID string) ([]List, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT l.id, l.tenant_id, l.name, COALESCE(l.description, ''),
           (SELECT COUNT(1) FROM contact_list_members m WHERE m.list_id = l.id),
           l.created_at
    FROM contact_lists l
    WHERE l.tenant_id = $1
    ORDER BY l.name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []List
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Name, &l.Description, &l.MemberCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (s *Store) CreateList(ctx context.Context, tenantID, name, description string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO contact_lists (tenant_id, name, description)
    VALUES ($1, $2, NULLIF($3, ''))
    RETURNING id
  `, tenantID, name, description).Scan(&id)
	return id, err
}

func (s *Store) DeleteList(ctx context.Context, tenantID, listID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM contact_lists WHERE tenant_id = $1 AND id = $2", tenantID, listID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) AddListMember(ctx context.Context, tenantID, listID, contactID string) error {
	// Both rows must belong to the tenant; the join enforces it.
	_, err := s.DB.Exec(ctx, `
    INSERT INTO contact_list_members (list_id, contact_id)
    SELECT l.id, c.id
    FROM contact_lists l, contacts c
    WHERE l.tenant_id = $1 AND l.id = $2 AND c.tenant_id = $1 AND c.id = $3
    ON CONFLICT DO NOTHING
  `, tenantID, listID, contactID)
	return err
}

func (s *Store) RemoveListMember(ctx context.Context, tenantID, listID, contactID string) error {
	_, err := s.DB.Exec(ctx, `
    DELETE FROM contact_list_members m
    USING contact_lists l
    WHERE m.list_id = l.id AND l.tenant_id = $1 AND m.list_id = $2 AND m.contact_id = $3
  `, tenantID, listID, contactID)
	return err
}

// ListRecipients returns subscribed member emails for a campaign send.
func (s *Store) ListRecipients(ctx context.Context, tenantID, listID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT c.email
    FROM contact_list_members m
    JOIN contacts c ON m.contact_id = c.id
    JOIN contact_lists l ON m.list_id = l.id
    WHERE l.tenant_id = $1 AND m.list_id = $2 AND c.subscribed
    ORDER BY c.email
  `, tenantID, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (s *Store) ListTags(ctx context.Context, tenantID string) ([]Tag, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, tenant_id, name FROM tags WHERE tenant_id = $1 ORDER BY name", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, tenantID, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO tags (tenant_id, name)
    VALUES ($1, $2)
    ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, tenantID, name).Scan(&id)
	return id, err
}

func (s *Store) DeleteTag(ctx context.Context, tenantID, tagID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM tags WHERE tenant_id = $1 AND id = $2", tenantID, tagID)
	return err
}

func (s *Store) TagContact(ctx context.Context, tenantID, contactID, tagID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO contact_tags (contact_id, tag_id)
    SELECT c.id, t.id
    FROM contacts c, tags t
    WHERE c.tenant_id = $1 AND c.id = $2 AND t.tenant_id = $1 AND t.id = $3
    ON CONFLICT DO NOTHING
  `, tenantID, contactID, tagID)
	return err
}

func (s *Store) UntagContact(ctx context.Context, tenantID, contactID, tagID string) error {
	_, err := s.DB.Exec(ctx, `
    DELETE FROM contact_tags ct
    USING tags t
    WHERE ct.tag_id = t.id AND t.tenant_id = $1 AND ct.contact_id = $2 AND ct.tag_id = $3
  `, tenantID, contactID, tagID)
	return err
}
