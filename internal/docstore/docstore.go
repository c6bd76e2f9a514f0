// Package docstore provides the document store backing the certificate
// registrar. Records live in named collections and are stored as JSON
// documents keyed by id.
//
// Three implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - BadgerStore: embedded key-value store on local disk.
//   - PostgresStore: durable, for multi-instance deployments.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names used by the registrar.
const (
	Drafts = "students_draft"
	Finals = "students_final"
	Ledger = "blockchain"
	Admins = "admins"
)

// ErrNotFound is returned when a document does not exist in the collection.
var ErrNotFound = errors.New("document not found")

// StoreError wraps a backend failure (unreachable store, I/O error, write
// conflict). It is never used for missing documents — that is ErrNotFound.
type StoreError struct {
	Op         string // get, put, delete, list
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Document is a raw JSON document together with its id, as returned by List.
type Document struct {
	ID   string
	Data []byte
}

// Decode unmarshals the document body into out.
func (d Document) Decode(out any) error {
	return json.Unmarshal(d.Data, out)
}

// Store is the abstract document store consumed by the lifecycle engine.
// Get decodes the document into out and returns ErrNotFound when the id has
// no document. List returns all documents in a collection; order is
// unspecified. All operations are atomic single-document primitives — the
// store provides no cross-document transactions.
type Store interface {
	Get(ctx context.Context, collection, id string, out any) error
	Put(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
}
