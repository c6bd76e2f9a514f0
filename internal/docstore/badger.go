package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore persists documents to an embedded Badger database on local
// disk. Keys are "{collection}/{id}"; values are the JSON document bodies.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database rooted at dir.
// Badger's own logger is disabled; the caller owns all logging.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database. Must be called on shutdown.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func badgerKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, collection, id string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return &StoreError{Op: "get", Collection: collection, Err: err}
	}
	return nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &StoreError{Op: "put", Collection: collection, Err: fmt.Errorf("encode %q: %w", id, err)}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(collection, id), raw)
	})
	if err != nil {
		return &StoreError{Op: "put", Collection: collection, Err: err}
	}
	return nil
}

// Delete implements Store. Deleting a missing document is not an error.
func (s *BadgerStore) Delete(_ context.Context, collection, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(collection, id))
	})
	if err != nil {
		return &StoreError{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}

// List implements Store. Documents come back in key order, a side effect of
// Badger's sorted iteration.
func (s *BadgerStore) List(_ context.Context, collection string) ([]Document, error) {
	prefix := []byte(collection + "/")
	var docs []Document

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(bytes.TrimPrefix(item.KeyCopy(nil), prefix))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			docs = append(docs, Document{ID: id, Data: val})
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Collection: collection, Err: err}
	}
	return docs, nil
}
