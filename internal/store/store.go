// Package store abstracts the document database that holds every meeting. Firestore is the system of record; the
// in-memory implementation backs tests and local development.
package store

import (
	"context"
)

// Op is a query filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Document is a stored record together with its store-assigned ID.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Filter restricts a query to documents whose field at Path satisfies Op against Value.
type Filter struct {
	Path  string
	Op    Op
	Value interface{}
}

// Order sorts query results by a single field.
type Order struct {
	Path       string
	Descending bool
}

// Mutation is what a transaction function asks the store to do with the document it read. Set fields are merged
// into the document; Delete removes it. A nil Mutation leaves the document untouched.
type Mutation struct {
	Set    map[string]interface{}
	Delete bool
}

// TxFunc receives the current version of a document and returns the change to apply. It may be called more than
// once when concurrent writes conflict, so it must not have side effects. Returning an error aborts the transaction
// and the error is returned unchanged by RunTransaction.
type TxFunc func(doc *Document) (*Mutation, error)

// Store encapsulates the logic to access documents from a database.
type Store interface {
	// Insert saves a new document and returns its generated ID.
	Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Get returns the document with the given ID, or qerrors.EntityNotFound.
	Get(ctx context.Context, collection string, id string) (*Document, error)
	// Query returns every document matching all filters, sorted by order.
	Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]*Document, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error
	// RunTransaction atomically reads the document with the given ID and applies the Mutation returned by fn.
	// A missing document fails with qerrors.EntityNotFound before fn is called.
	RunTransaction(ctx context.Context, collection string, id string, fn TxFunc) error
	// Delete removes the document with the given ID. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection string, id string) error
}
