package service

import (
	"context"
	"errors"
)

// ErrKeyExists is returned by Apply when a PutIfAbsent op targets a key
// that already holds a value. No op in the batch takes effect.
var ErrKeyExists = errors.New("key already exists")

// Pair is a single key-value entry returned by prefix listings.
type Pair struct {
	Key   string
	Value []byte
}

// OpKind identifies the mutation carried by an Op.
type OpKind int

const (
	OpPut OpKind = iota
	OpPutIfAbsent
	OpDelete
)

// Op is one mutation inside an atomic Apply batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// Put builds an unconditional write op.
func Put(key string, value []byte) Op {
	return Op{Kind: OpPut, Key: key, Value: value}
}

// PutIfAbsent builds a conditional write op that fails the whole batch
// with ErrKeyExists when the key is already present.
func PutIfAbsent(key string, value []byte) Op {
	return Op{Kind: OpPutIfAbsent, Key: key, Value: value}
}

// Delete builds a delete op. Deleting an absent key is a no-op.
func Delete(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// Store is the key-value storage surface the entity layer builds on.
// Implementations must provide per-key atomicity for the single-op
// methods and all-or-nothing semantics for Apply.
type Store interface {
	// Get returns the value for key and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put writes value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key and reports whether a value was actually removed.
	Delete(ctx context.Context, key string) (bool, error)

	// ListPrefix returns every entry whose key starts with prefix, in
	// ascending key order.
	ListPrefix(ctx context.Context, prefix string) ([]Pair, error)

	// Apply executes the ops as a single atomic unit. If any
	// PutIfAbsent fails, nothing in the batch is written and
	// ErrKeyExists is returned.
	Apply(ctx context.Context, ops []Op) error
}
