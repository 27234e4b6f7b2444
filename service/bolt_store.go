package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var kvBucket = []byte("kv")

// BoltStore is a Store backed by an embedded bbolt database. A single
// bucket holds all entries; Apply runs inside one write transaction,
// which gives the batch its all-or-nothing guarantee.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(kvBucket).Get([]byte(key))
		if v != nil {
			found = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt get %s: %w", key, err)
	}
	return value, found, nil
}

func (s *BoltStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(kvBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bolt put %s: %w", key, err)
	}
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, key string) (bool, error) {
	var removed bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(kvBucket)
		if b.Get([]byte(key)) == nil {
			return nil
		}
		removed = true
		return b.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("bolt delete %s: %w", key, err)
	}
	return removed, nil
}

func (s *BoltStore) ListPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	var pairs []Pair

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(kvBucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			pairs = append(pairs, Pair{
				Key:   string(k),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt list prefix %s: %w", prefix, err)
	}
	return pairs, nil
}

func (s *BoltStore) Apply(ctx context.Context, ops []Op) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(kvBucket)

		for _, op := range ops {
			if op.Kind == OpPutIfAbsent && b.Get([]byte(op.Key)) != nil {
				return ErrKeyExists
			}
		}

		for _, op := range ops {
			switch op.Kind {
			case OpPut, OpPutIfAbsent:
				if err := b.Put([]byte(op.Key), op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete([]byte(op.Key)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if errors.Is(err, ErrKeyExists) {
		return ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("bolt apply: %w", err)
	}
	return nil
}
