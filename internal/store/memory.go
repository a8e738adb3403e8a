package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"studygroup/internal/qerrors"

	"github.com/google/uuid"
)

// DefaultMaxAttempts is how many times MemoryStore runs a transaction function before giving up.
const DefaultMaxAttempts = 10

type memoryDoc struct {
	data    map[string]interface{}
	version uint64
}

// MemoryStore keeps documents in process memory. Transactions are optimistic: the function runs against a copy of
// the document and its result is committed only if nobody wrote the document in the meantime, otherwise it is run
// again on the fresh version.
type MemoryStore struct {
	lock        sync.RWMutex
	collections map[string]map[string]*memoryDoc

	// MaxAttempts bounds transaction retries.
	MaxAttempts int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryDoc),
		MaxAttempts: DefaultMaxAttempts,
	}
}

func (ms *MemoryStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.New().String()

	ms.lock.Lock()
	defer ms.lock.Unlock()

	coll, ok := ms.collections[collection]
	if !ok {
		coll = make(map[string]*memoryDoc)
		ms.collections[collection] = coll
	}
	coll[id] = &memoryDoc{data: copyMap(data), version: 1}

	return id, nil
}

func (ms *MemoryStore) Get(ctx context.Context, collection string, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.lock.RLock()
	defer ms.lock.RUnlock()

	d, ok := ms.collections[collection][id]
	if !ok {
		return nil, qerrors.EntityNotFound
	}
	return &Document{ID: id, Data: copyMap(d.data)}, nil
}

func (ms *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.lock.RLock()
	docs := make([]*Document, 0)
	for id, d := range ms.collections[collection] {
		if matchesAll(d.data, filters) {
			docs = append(docs, &Document{ID: id, Data: copyMap(d.data)})
		}
	}
	ms.lock.RUnlock()

	if order != nil {
		// Like Firestore, documents without the order field are left out.
		kept := docs[:0]
		for _, doc := range docs {
			if _, ok := doc.Data[order.Path]; ok {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if order != nil {
			c := compareValues(docs[i].Data[order.Path], docs[j].Data[order.Path])
			if c != 0 {
				if order.Descending {
					return c > 0
				}
				return c < 0
			}
		}
		return docs[i].ID < docs[j].ID
	})

	return docs, nil
}

func (ms *MemoryStore) Update(ctx context.Context, collection string, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.lock.Lock()
	defer ms.lock.Unlock()

	d, ok := ms.collections[collection][id]
	if !ok {
		return qerrors.EntityNotFound
	}
	mergeInto(d.data, copyMap(fields))
	d.version++

	return nil
}

func (ms *MemoryStore) RunTransaction(ctx context.Context, collection string, id string, fn TxFunc) error {
	maxAttempts := ms.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ms.lock.RLock()
		d, ok := ms.collections[collection][id]
		if !ok {
			ms.lock.RUnlock()
			return qerrors.EntityNotFound
		}
		version := d.version
		snapshot := copyMap(d.data)
		ms.lock.RUnlock()

		m, err := fn(&Document{ID: id, Data: snapshot})
		if err != nil {
			return err
		}

		if ms.commit(collection, id, version, m) {
			return nil
		}
	}

	return qerrors.TooMuchContention
}

// commit applies m if the document is still at version. It reports false when the transaction has to be retried.
func (ms *MemoryStore) commit(collection string, id string, version uint64, m *Mutation) bool {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	d, ok := ms.collections[collection][id]
	if !ok || d.version != version {
		return false
	}

	switch {
	case m == nil:
	case m.Delete:
		delete(ms.collections[collection], id)
	default:
		mergeInto(d.data, copyMap(m.Set))
		d.version++
	}
	return true
}

func (ms *MemoryStore) Delete(ctx context.Context, collection string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.collections[collection], id)
	return nil
}

// Count returns the number of documents in a collection.
func (ms *MemoryStore) Count(collection string) int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	return len(ms.collections[collection])
}

// Helpers

func matchesAll(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Path]
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if compareValues(v, f.Value) != 0 {
				return false
			}
		case OpArrayContains:
			if !arrayContains(v, f.Value) {
				return false
			}
		default:
			panic(fmt.Sprintf("memory store: unsupported operator %q", f.Op))
		}
	}
	return true
}

func arrayContains(arr interface{}, want interface{}) bool {
	rv := reflect.ValueOf(arr)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if compareValues(rv.Index(i).Interface(), want) == 0 {
			return true
		}
	}
	return false
}

// compareValues orders values the way the document store does for the types meetings use. Values of different or
// unsupported types compare unequal, ordered by their type name.
func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}

	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)) | 1
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// mergeInto merges src into dst. Nested maps are merged key by key, everything else is replaced.
func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]interface{})
		dv, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			mergeInto(dv, sv)
			continue
		}
		dst[k] = v
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return copyMap(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), tv...)
	case []map[string]interface{}:
		out := make([]interface{}, len(tv))
		for i, e := range tv {
			out[i] = copyMap(e)
		}
		return out
	}
	return v
}
