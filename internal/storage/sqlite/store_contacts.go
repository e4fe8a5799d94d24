package sqlite

import (
	"context"
	"fmt"

	"github.com/ajayprem/cadence/internal/storage"
)

// PutContact records a directed contact edge. Re-adding an existing edge is
// a no-op.
func (s *Store) PutContact(ctx context.Context, contact storage.Contact) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO contacts (owner_user_id, contact_user_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(owner_user_id, contact_user_id) DO NOTHING`,
		contact.OwnerUserID, contact.ContactUserID, toMillis(contact.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// HasContact reports whether the directed edge exists.
func (s *Store) HasContact(ctx context.Context, ownerUserID, contactUserID string) (bool, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE owner_user_id = ? AND contact_user_id = ?`,
		ownerUserID, contactUserID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query contact: %w", err)
	}
	return count > 0, nil
}

// ListContacts returns the user's outgoing edges, oldest first.
func (s *Store) ListContacts(ctx context.Context, ownerUserID string) ([]storage.Contact, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT owner_user_id, contact_user_id, created_at
		 FROM contacts WHERE owner_user_id = ? ORDER BY created_at`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []storage.Contact
	for rows.Next() {
		var (
			contact   storage.Contact
			createdAt int64
		)
		if err := rows.Scan(&contact.OwnerUserID, &contact.ContactUserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contact.CreatedAt = fromMillis(createdAt)
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}
