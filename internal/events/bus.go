package events

import (
	evbus "github.com/asaskevich/EventBus"
)

const topicProductsChanged = "catalog.products.changed"

// ChangeKind labels the mutation that triggered a catalog change event.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeImported ChangeKind = "imported"
)

// Bus carries the single "catalog changed" topic the admin mutations
// publish on, so other views can refresh without polling.
type Bus struct {
	bus evbus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// PublishProductsChanged notifies subscribers that the catalog mutated.
func (b *Bus) PublishProductsChanged(kind ChangeKind) {
	b.bus.Publish(topicProductsChanged, kind)
}

// SubscribeProductsChanged registers fn for catalog change events.
func (b *Bus) SubscribeProductsChanged(fn func(kind ChangeKind)) error {
	return b.bus.Subscribe(topicProductsChanged, fn)
}

// UnsubscribeProductsChanged removes a previously registered handler.
func (b *Bus) UnsubscribeProductsChanged(fn func(kind ChangeKind)) error {
	return b.bus.Unsubscribe(topicProductsChanged, fn)
}
