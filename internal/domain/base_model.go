package domain

// Entity is implemented by every record type persisted through the
// indexed entity store. EntityID returns the storage key for the record.
type Entity interface {
	EntityID() string
}
