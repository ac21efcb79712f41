package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// indexSegment separates an entity's records from its index keys under the
// same prefix.
const indexSegment = "idx:"

// Entity stores JSON-encoded values of T under prefix+id. Unique indexes map
// a derived value back to the owning id. The *Txn methods join a caller's
// transaction so several entities can change atomically.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []uniqueIndex[T]
}

type uniqueIndex[T any] struct {
	name  string
	value func(*T) string
}

// NewEntity returns an Entity for T stored under prefix.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithIndex adds a unique index whose value is derived from the entity.
func (e *Entity[T]) WithIndex(name string, value func(*T) string) *Entity[T] {
	e.indexes = append(e.indexes, uniqueIndex[T]{name: name, value: value})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + indexSegment + name + ":" + value)
}

func (e *Entity[T]) encode(v *T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.prefix, err)
	}
	return data, nil
}

func (e *Entity[T]) decode(item *badger.Item) (*T, error) {
	var v T
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	return &v, nil
}

// exists reports whether key is present, separating absence from read errors.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("read %s: %w", key, err)
	}
}

// claim fails with *IndexConflictError when the index value is taken.
func (e *Entity[T]) claim(txn *badger.Txn, idx uniqueIndex[T], value string) error {
	taken, err := exists(txn, e.indexKey(idx.name, value))
	if err != nil {
		return err
	}
	if taken {
		return &IndexConflictError{Index: idx.name, Key: value}
	}
	return nil
}

// Create stores a new entity. It fails with *IndexConflictError when a unique
// value is taken and with ErrAlreadyExists when only the id is.
func (e *Entity[T]) Create(ctx context.Context, id string, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.store.update(ctx, func(txn *badger.Txn) error {
		return e.CreateTxn(txn, id, v)
	})
}

// CreateTxn is Create inside txn.
func (e *Entity[T]) CreateTxn(txn *badger.Txn, id string, v *T) error {
	for _, idx := range e.indexes {
		if err := e.claim(txn, idx, idx.value(v)); err != nil {
			return err
		}
	}
	taken, err := exists(txn, e.key(id))
	if err != nil {
		return err
	}
	if taken {
		return ErrAlreadyExists
	}
	return e.write(txn, id, v)
}

// ClaimableTxn fails with *IndexConflictError when value is already held in
// the named index. Unknown index names are an error.
func (e *Entity[T]) ClaimableTxn(txn *badger.Txn, name, value string) error {
	for _, idx := range e.indexes {
		if idx.name == name {
			return e.claim(txn, idx, value)
		}
	}
	return fmt.Errorf("%s has no index %q", e.prefix, name)
}

// write sets the record and its index keys without any checks.
func (e *Entity[T]) write(txn *badger.Txn, id string, v *T) error {
	data, err := e.encode(v)
	if err != nil {
		return err
	}
	if err := txn.Set(e.key(id), data); err != nil {
		return err
	}
	for _, idx := range e.indexes {
		if err := txn.Set(e.indexKey(idx.name, idx.value(v)), []byte(id)); err != nil {
			return err
		}
	}
	return nil
}

// Get loads an entity. It fails with ErrNotFound when id is absent.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.store.db.View(func(txn *badger.Txn) (err error) {
		out, err = e.GetTxn(txn, id)
		return err
	})
	return out, err
}

// GetTxn is Get inside txn. Reads in a read-write transaction take part in
// conflict detection.
func (e *Entity[T]) GetTxn(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s%s: %w", e.prefix, id, err)
	}
	return e.decode(item)
}

// GetByIndex loads the entity owning value in the named index.
func (e *Entity[T]) GetByIndex(ctx context.Context, name, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(name, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = e.GetTxn(txn, string(id))
		return err
	})
	return out, err
}

// UpdateTxn replaces an existing entity inside txn, moving index keys whose
// values changed. It fails with ErrNotFound when id is absent.
func (e *Entity[T]) UpdateTxn(txn *badger.Txn, id string, v *T) error {
	old, err := e.GetTxn(txn, id)
	if err != nil {
		return err
	}
	for _, idx := range e.indexes {
		before, after := idx.value(old), idx.value(v)
		if before == after {
			continue
		}
		if err := e.claim(txn, idx, after); err != nil {
			return err
		}
		if err := txn.Delete(e.indexKey(idx.name, before)); err != nil {
			return err
		}
	}
	return e.write(txn, id, v)
}

// Upsert writes v regardless of prior state. Indexed entities must go through
// Create and UpdateTxn instead.
func (e *Entity[T]) Upsert(ctx context.Context, id string, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.indexes) > 0 {
		return fmt.Errorf("upsert %s: entity has unique indexes", e.prefix)
	}
	data, err := e.encode(v)
	if err != nil {
		return err
	}
	return e.store.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(e.key(id), data)
	})
}

// DeleteTxn removes an entity and its index keys inside txn. A missing
// entity is not an error.
func (e *Entity[T]) DeleteTxn(txn *badger.Txn, id string) error {
	v, err := e.GetTxn(txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, idx := range e.indexes {
		if err := txn.Delete(e.indexKey(idx.name, idx.value(v))); err != nil {
			return err
		}
	}
	return txn.Delete(e.key(id))
}

// List iterates the entities whose id starts with idPrefix, in key order.
func (e *Entity[T]) List(ctx context.Context, idPrefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			for v, err := range e.ListTxn(txn, idPrefix) {
				if err == nil {
					err = ctx.Err()
				}
				if !yield(v, err) || err != nil {
					break
				}
			}
			return nil
		})
	}
}

// ListTxn is List inside txn. Index keys are skipped.
func (e *Entity[T]) ListTxn(txn *badger.Txn, idPrefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		seek := e.key(idPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seek
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			item := it.Item()
			if strings.HasPrefix(string(item.Key()[len(e.prefix):]), indexSegment) {
				continue
			}
			v, err := e.decode(item)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// IDsByIndexPrefix returns the owners of index values starting with
// valuePrefix, in value order.
func (e *Entity[T]) IDsByIndexPrefix(ctx context.Context, name, valuePrefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := e.store.db.View(func(txn *badger.Txn) error {
		seek := e.indexKey(name, valuePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = seek
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan index %s: %w", name, err)
	}
	return ids, nil
}
