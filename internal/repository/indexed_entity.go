package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/juliettescloset/storefront-api/internal/domain"
	"github.com/juliettescloset/storefront-api/service"
)

var (
	// ErrNotFound is returned when an id has no record.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned when creating an id that already exists.
	ErrConflict = errors.New("entity already exists")
)

// EntityStore defines the generic operations of the indexed entity store.
type EntityStore[T domain.Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, id string, entity T) (T, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]T, error)
	EnsureSeed(ctx context.Context, seed []T) error
}

// IndexedEntity persists one named entity type in a key-value store and
// maintains an index of all live ids alongside the records. Every
// create and delete touches record and index inside a single atomic
// Apply batch, so no reader can observe the two diverging.
type IndexedEntity[T domain.Entity] struct {
	store      service.Store
	entityName string
	indexName  string
}

// NewIndexedEntity creates a store for one entity type. entityName
// prefixes record keys, indexName prefixes index keys.
func NewIndexedEntity[T domain.Entity](store service.Store, entityName, indexName string) *IndexedEntity[T] {
	return &IndexedEntity[T]{
		store:      store,
		entityName: entityName,
		indexName:  indexName,
	}
}

func (s *IndexedEntity[T]) recordKey(id string) string {
	return s.entityName + ":" + id
}

func (s *IndexedEntity[T]) indexKey(id string) string {
	return s.indexName + ":" + id
}

func (s *IndexedEntity[T]) seedMarkerKey() string {
	return "sys:seeded:" + s.entityName
}

// Create writes the record and its index entry together. Ids are
// supplied by the caller; an id collision rejects the whole write with
// ErrConflict rather than silently overwriting.
func (s *IndexedEntity[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	id := entity.EntityID()
	if id == "" {
		return zero, fmt.Errorf("entity id must not be empty")
	}

	value, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal %s record: %w", s.entityName, err)
	}

	err = s.store.Apply(ctx, []service.Op{
		service.PutIfAbsent(s.recordKey(id), value),
		service.Put(s.indexKey(id), []byte(id)),
	})
	if errors.Is(err, service.ErrKeyExists) {
		return zero, fmt.Errorf("%s %s: %w", s.entityName, id, ErrConflict)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to create %s %s: %w", s.entityName, id, err)
	}
	return entity, nil
}

// Get returns the record for id, or ErrNotFound.
func (s *IndexedEntity[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	value, found, err := s.store.Get(ctx, s.recordKey(id))
	if err != nil {
		return zero, fmt.Errorf("failed to read %s %s: %w", s.entityName, id, err)
	}
	if !found {
		return zero, fmt.Errorf("%s %s: %w", s.entityName, id, ErrNotFound)
	}

	var entity T
	if err := json.Unmarshal(value, &entity); err != nil {
		return zero, fmt.Errorf("failed to unmarshal %s record: %w", s.entityName, err)
	}
	return entity, nil
}

// Exists reports whether a record exists for id.
func (s *IndexedEntity[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, found, err := s.store.Get(ctx, s.recordKey(id))
	if err != nil {
		return false, fmt.Errorf("failed to read %s %s: %w", s.entityName, id, err)
	}
	return found, nil
}

// Save fully replaces the record for id. The existence check and the
// write are separate store calls; concurrent save/delete of the same id
// relies on the store's per-key atomicity, as the single-tenant admin
// workload never contends on one id.
func (s *IndexedEntity[T]) Save(ctx context.Context, id string, entity T) (T, error) {
	var zero T

	found, err := s.Exists(ctx, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%s %s: %w", s.entityName, id, ErrNotFound)
	}

	value, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal %s record: %w", s.entityName, err)
	}
	if err := s.store.Put(ctx, s.recordKey(id), value); err != nil {
		return zero, fmt.Errorf("failed to save %s %s: %w", s.entityName, id, err)
	}
	return entity, nil
}

// Delete removes the record and its index entry together and reports
// whether a record was actually removed. Deleting an absent id is a
// no-op, not an error.
func (s *IndexedEntity[T]) Delete(ctx context.Context, id string) (bool, error) {
	found, err := s.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	err = s.store.Apply(ctx, []service.Op{
		service.Delete(s.recordKey(id)),
		service.Delete(s.indexKey(id)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", s.entityName, id, err)
	}
	return true, nil
}

// List returns every record reachable through the index, in index key
// order. An id whose record vanished between the index read and the
// record read (concurrent delete) is skipped.
func (s *IndexedEntity[T]) List(ctx context.Context) ([]T, error) {
	pairs, err := s.store.ListPrefix(ctx, s.indexName+":")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s index: %w", s.indexName, err)
	}

	entities := make([]T, 0, len(pairs))
	for _, pair := range pairs {
		id := string(pair.Value)
		value, found, err := s.store.Get(ctx, s.recordKey(id))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s %s: %w", s.entityName, id, err)
		}
		if !found {
			continue
		}

		var entity T
		if err := json.Unmarshal(value, &entity); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s record: %w", s.entityName, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// EnsureSeed populates the seed set the first time the namespace is
// observed empty. The whole seed batch is guarded by a conditional
// marker key, so concurrent or repeated calls insert it exactly once,
// and a non-empty namespace is never touched.
func (s *IndexedEntity[T]) EnsureSeed(ctx context.Context, seed []T) error {
	pairs, err := s.store.ListPrefix(ctx, s.indexName+":")
	if err != nil {
		return fmt.Errorf("failed to check %s index before seeding: %w", s.indexName, err)
	}
	if len(pairs) > 0 {
		return nil
	}

	ops := make([]service.Op, 0, len(seed)*2+1)
	ops = append(ops, service.PutIfAbsent(s.seedMarkerKey(), []byte("1")))
	for _, entity := range seed {
		id := entity.EntityID()
		value, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to marshal seed %s record: %w", s.entityName, err)
		}
		ops = append(ops, service.Put(s.recordKey(id), value))
		ops = append(ops, service.Put(s.indexKey(id), []byte(id)))
	}

	err = s.store.Apply(ctx, ops)
	if errors.Is(err, service.ErrKeyExists) {
		// Another caller won the seed race.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed %s: %w", s.entityName, err)
	}
	return nil
}
