// Package social resolves friendship from the directed contact graph.
// Two users are friends only when each has added the other; one-sided adds
// grant nothing.
package social

import (
	"context"
	"fmt"
	"time"

	"github.com/ajayprem/cadence/internal/storage"
)

// Graph answers friendship queries over a contact store.
type Graph struct {
	contacts storage.ContactStore
	now      func() time.Time
}

func NewGraph(contacts storage.ContactStore, now func() time.Time) *Graph {
	if now == nil {
		now = time.Now
	}
	return &Graph{contacts: contacts, now: now}
}

// AddContact records a directed edge from owner to contact. Adding an
// existing edge is a no-op.
func (g *Graph) AddContact(ctx context.Context, ownerUserID, contactUserID string) error {
	if ownerUserID == "" || contactUserID == "" || ownerUserID == contactUserID {
		return fmt.Errorf("invalid contact pair (%q, %q)", ownerUserID, contactUserID)
	}
	err := g.contacts.PutContact(ctx, storage.Contact{
		OwnerUserID:   ownerUserID,
		ContactUserID: contactUserID,
		CreatedAt:     g.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("add contact: %w", err)
	}
	return nil
}

// AreFriends reports whether both directed edges exist.
func (g *Graph) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	forward, err := g.contacts.HasContact(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("check contact %s->%s: %w", a, b, err)
	}
	if !forward {
		return false, nil
	}
	backward, err := g.contacts.HasContact(ctx, b, a)
	if err != nil {
		return false, fmt.Errorf("check contact %s->%s: %w", b, a, err)
	}
	return backward, nil
}

// ListFriends returns the user IDs with mutual edges to userID.
func (g *Graph) ListFriends(ctx context.Context, userID string) ([]string, error) {
	contacts, err := g.contacts.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	friends := make([]string, 0, len(contacts))
	for _, c := range contacts {
		mutual, err := g.contacts.HasContact(ctx, c.ContactUserID, userID)
		if err != nil {
			return nil, fmt.Errorf("check contact %s->%s: %w", c.ContactUserID, userID, err)
		}
		if mutual {
			friends = append(friends, c.ContactUserID)
		}
	}
	return friends, nil
}
