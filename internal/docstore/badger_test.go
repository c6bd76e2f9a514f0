package docstore_test

import (
	"errors"
	"testing"

	"github.com/jakaria-jihad/certchain/internal/docstore"
)

func newBadger(t *testing.T) *docstore.BadgerStore {
	t.Helper()
	s, err := docstore.NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})
	return s
}

func TestBadgerStore_roundTrip(t *testing.T) {
	s := newBadger(t)

	if err := s.Put(ctx, docstore.Drafts, "S1", &doc{Name: "alpha"}); err != nil {
		t.Fatal(err)
	}

	var got doc
	if err := s.Get(ctx, docstore.Drafts, "S1", &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "alpha" {
		t.Errorf("got %q, want alpha", got.Name)
	}

	if err := s.Get(ctx, docstore.Drafts, "missing", &got); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBadgerStore_listByCollectionPrefix(t *testing.T) {
	s := newBadger(t)

	if err := s.Put(ctx, docstore.Drafts, "S1", &doc{Name: "draft"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, docstore.Finals, "S1", &doc{Name: "final"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, docstore.Finals, "S2", &doc{Name: "final2"}); err != nil {
		t.Fatal(err)
	}

	docs, err := s.List(ctx, docstore.Finals)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("finals list: got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "S1" || docs[1].ID != "S2" {
		t.Errorf("list ids: got %q, %q", docs[0].ID, docs[1].ID)
	}
}

func TestBadgerStore_delete(t *testing.T) {
	s := newBadger(t)

	if err := s.Put(ctx, docstore.Drafts, "S1", &doc{Name: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, docstore.Drafts, "S1"); err != nil {
		t.Fatal(err)
	}

	var got doc
	if err := s.Get(ctx, docstore.Drafts, "S1", &got); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("document survived delete: %v", err)
	}
}
