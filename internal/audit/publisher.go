// Package audit records an append-only trail of certificate lifecycle
// actions. Events never block the request path on anything beyond the store
// write itself.
package audit

import (
	"context"
	"time"

	id "certverify/pkg/domain"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.OccurredAt.IsZero() {
		base.OccurredAt = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, ownerID id.OwnerID) ([]Event, error) {
	return p.store.ListByOwner(ctx, ownerID)
}
