package store

import (
	"context"
	"fmt"

	"studygroup/internal/qerrors"

	"cloud.google.com/go/firestore"
	"github.com/golang/glog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore queries and persists documents in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (fs *FirestoreStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := fs.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("error adding document to %v: %w", collection, err)
	}
	return ref.ID, nil
}

func (fs *FirestoreStore) Get(ctx context.Context, collection string, id string) (*Document, error) {
	snap, err := fs.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, qerrors.EntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting %v/%v: %w", collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (fs *FirestoreStore) Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]*Document, error) {
	q := fs.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Path, string(f.Op), f.Value)
	}
	if order != nil {
		dir := firestore.Asc
		if order.Descending {
			dir = firestore.Desc
		}
		q = q.OrderBy(order.Path, dir)
	}

	docs := make([]*Document, 0)
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error querying %v: %w", collection, err)
		}
		docs = append(docs, &Document{ID: doc.Ref.ID, Data: doc.Data()})
	}

	return docs, nil
}

func (fs *FirestoreStore) Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	_, err := fs.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return qerrors.EntityNotFound
	}
	return err
}

func (fs *FirestoreStore) RunTransaction(ctx context.Context, collection string, id string, fn TxFunc) error {
	ref := fs.client.Collection(collection).Doc(id)
	attempt := 0
	return fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		attempt++
		if attempt > 1 {
			glog.Infof("retrying transaction on %v/%v (attempt %d)\n", collection, id, attempt)
		}

		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return qerrors.EntityNotFound
		}
		if err != nil {
			return err
		}

		m, err := fn(&Document{ID: snap.Ref.ID, Data: snap.Data()})
		if err != nil || m == nil {
			return err
		}
		if m.Delete {
			return tx.Delete(ref)
		}
		return tx.Set(ref, m.Set, firestore.MergeAll)
	})
}

func (fs *FirestoreStore) Delete(ctx context.Context, collection string, id string) error {
	_, err := fs.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}
