package store

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"studygroup/internal/qerrors"
)

const testCollection = "things"

func insert(t *testing.T, ms *MemoryStore, data map[string]interface{}) string {
	t.Helper()
	id, err := ms.Insert(context.Background(), testCollection, data)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return id
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ms := NewMemoryStore()
	id := insert(t, ms, map[string]interface{}{
		"tags": []interface{}{"a", "b"},
	})

	doc, err := ms.Get(context.Background(), testCollection, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	doc.Data["tags"].([]interface{})[0] = "mutated"

	again, _ := ms.Get(context.Background(), testCollection, id)
	if !reflect.DeepEqual(again.Data["tags"], []interface{}{"a", "b"}) {
		t.Errorf("Expected stored document to be unaffected, got %v", again.Data["tags"])
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	ms := NewMemoryStore()
	if _, err := ms.Get(context.Background(), testCollection, "nope"); !errors.Is(err, qerrors.EntityNotFound) {
		t.Errorf("Expected EntityNotFound, got %v", err)
	}
}

func TestMemoryStoreQueryFiltersAndOrders(t *testing.T) {
	ms := NewMemoryStore()
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	late := insert(t, ms, map[string]interface{}{"kind": "x", "at": base.Add(2 * time.Hour), "ids": []interface{}{"u1"}})
	early := insert(t, ms, map[string]interface{}{"kind": "x", "at": base, "ids": []string{"u1", "u2"}})
	insert(t, ms, map[string]interface{}{"kind": "y", "at": base.Add(time.Hour), "ids": []interface{}{"u1"}})
	insert(t, ms, map[string]interface{}{"kind": "x", "ids": []interface{}{"u1"}})

	docs, err := ms.Query(context.Background(), testCollection,
		[]Filter{{Path: "kind", Op: OpEqual, Value: "x"}, {Path: "ids", Op: OpArrayContains, Value: "u1"}},
		&Order{Path: "at"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	var got []string
	for _, d := range docs {
		got = append(got, d.ID)
	}
	if !reflect.DeepEqual(got, []string{early, late}) {
		t.Errorf("Expected %v, got %v", []string{early, late}, got)
	}

	desc, _ := ms.Query(context.Background(), testCollection, nil, &Order{Path: "at", Descending: true})
	if len(desc) != 3 || desc[0].ID != late {
		t.Errorf("Expected 3 ordered documents starting with %v, got %v", late, desc)
	}
}

func TestMemoryStoreUpdateMergesNestedMaps(t *testing.T) {
	ms := NewMemoryStore()
	id := insert(t, ms, map[string]interface{}{
		"name":  "n",
		"inner": map[string]interface{}{"a": 1, "b": 2},
	})

	err := ms.Update(context.Background(), testCollection, id, map[string]interface{}{
		"inner": map[string]interface{}{"b": 3},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc, _ := ms.Get(context.Background(), testCollection, id)
	expected := map[string]interface{}{"name": "n", "inner": map[string]interface{}{"a": 1, "b": 3}}
	if !reflect.DeepEqual(doc.Data, expected) {
		t.Errorf("Expected %v, got %v", expected, doc.Data)
	}

	if err := ms.Update(context.Background(), testCollection, "missing", nil); !errors.Is(err, qerrors.EntityNotFound) {
		t.Errorf("Expected EntityNotFound, got %v", err)
	}
}

func TestMemoryStoreTransactionsSerializeConcurrentWrites(t *testing.T) {
	ms := NewMemoryStore()
	ms.MaxAttempts = 1000
	id := insert(t, ms, map[string]interface{}{"count": 0})

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ms.RunTransaction(context.Background(), testCollection, id, func(doc *Document) (*Mutation, error) {
				return &Mutation{Set: map[string]interface{}{"count": doc.Data["count"].(int) + 1}}, nil
			})
			if err != nil {
				t.Errorf("RunTransaction: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, _ := ms.Get(context.Background(), testCollection, id)
	if doc.Data["count"] != writers {
		t.Errorf("Expected count %d, got %v", writers, doc.Data["count"])
	}
}

func TestMemoryStoreTransactionDelete(t *testing.T) {
	ms := NewMemoryStore()
	id := insert(t, ms, map[string]interface{}{"a": 1})

	err := ms.RunTransaction(context.Background(), testCollection, id, func(doc *Document) (*Mutation, error) {
		return &Mutation{Delete: true}, nil
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
	if ms.Count(testCollection) != 0 {
		t.Errorf("Expected the document to be deleted")
	}

	err = ms.RunTransaction(context.Background(), testCollection, id, func(doc *Document) (*Mutation, error) {
		t.Errorf("transaction function called for a missing document")
		return nil, nil
	})
	if !errors.Is(err, qerrors.EntityNotFound) {
		t.Errorf("Expected EntityNotFound, got %v", err)
	}
}

func TestMemoryStoreTransactionErrorAborts(t *testing.T) {
	ms := NewMemoryStore()
	id := insert(t, ms, map[string]interface{}{"a": 1})
	boom := errors.New("boom")

	err := ms.RunTransaction(context.Background(), testCollection, id, func(doc *Document) (*Mutation, error) {
		return &Mutation{Set: map[string]interface{}{"a": 2}}, boom
	})
	if err != boom {
		t.Errorf("Expected the function's error, got %v", err)
	}

	doc, _ := ms.Get(context.Background(), testCollection, id)
	if doc.Data["a"] != 1 {
		t.Errorf("Expected the document to be unchanged, got %v", doc.Data)
	}
}

func TestMemoryStoreTransactionGivesUpUnderContention(t *testing.T) {
	ms := NewMemoryStore()
	ms.MaxAttempts = 3
	id := insert(t, ms, map[string]interface{}{"a": 1})

	calls := 0
	err := ms.RunTransaction(context.Background(), testCollection, id, func(doc *Document) (*Mutation, error) {
		calls++
		// A conflicting write lands between every read and commit.
		if err := ms.Update(context.Background(), testCollection, id, map[string]interface{}{"a": calls}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		return &Mutation{Set: map[string]interface{}{"b": true}}, nil
	})
	if !errors.Is(err, qerrors.TooMuchContention) {
		t.Errorf("Expected TooMuchContention, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestMemoryStoreHonorsCancelledContext(t *testing.T) {
	ms := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ms.Insert(ctx, testCollection, map[string]interface{}{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
