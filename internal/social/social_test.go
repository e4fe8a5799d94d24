package social

import (
	"context"
	"testing"
	"time"

	"github.com/ajayprem/cadence/internal/storage"
)

type fakeContactStore struct {
	edges map[[2]string]storage.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{edges: make(map[[2]string]storage.Contact)}
}

func (f *fakeContactStore) PutContact(_ context.Context, c storage.Contact) error {
	f.edges[[2]string{c.OwnerUserID, c.ContactUserID}] = c
	return nil
}

func (f *fakeContactStore) HasContact(_ context.Context, owner, contact string) (bool, error) {
	_, ok := f.edges[[2]string{owner, contact}]
	return ok, nil
}

func (f *fakeContactStore) ListContacts(_ context.Context, owner string) ([]storage.Contact, error) {
	var out []storage.Contact
	for key, c := range f.edges {
		if key[0] == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func TestAreFriendsRequiresMutualEdges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := NewGraph(newFakeContactStore(), fixedNow)

	if err := g.AddContact(ctx, "alice", "bob"); err != nil {
		t.Fatalf("add contact: %v", err)
	}

	friends, err := g.AreFriends(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("are friends: %v", err)
	}
	if friends {
		t.Fatal("one-sided contact should not count as friendship")
	}

	if err := g.AddContact(ctx, "bob", "alice"); err != nil {
		t.Fatalf("add contact: %v", err)
	}
	friends, err = g.AreFriends(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("are friends: %v", err)
	}
	if !friends {
		t.Fatal("mutual contacts should be friends")
	}
}

func TestAreFriendsSelf(t *testing.T) {
	t.Parallel()

	g := NewGraph(newFakeContactStore(), fixedNow)
	friends, err := g.AreFriends(context.Background(), "alice", "alice")
	if err != nil {
		t.Fatalf("are friends: %v", err)
	}
	if friends {
		t.Fatal("a user is not their own friend")
	}
}

func TestListFriendsFiltersOneSided(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := NewGraph(newFakeContactStore(), fixedNow)

	for _, pair := range [][2]string{
		{"alice", "bob"}, {"bob", "alice"},
		{"alice", "carol"},
	} {
		if err := g.AddContact(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("add contact %v: %v", pair, err)
		}
	}

	friends, err := g.ListFriends(ctx, "alice")
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(friends) != 1 || friends[0] != "bob" {
		t.Fatalf("friends = %v, want [bob]", friends)
	}
}

func TestAddContactRejectsInvalidPairs(t *testing.T) {
	t.Parallel()

	g := NewGraph(newFakeContactStore(), fixedNow)
	if err := g.AddContact(context.Background(), "alice", "alice"); err == nil {
		t.Fatal("expected error for self contact")
	}
	if err := g.AddContact(context.Background(), "", "bob"); err == nil {
		t.Fatal("expected error for empty owner")
	}
}
