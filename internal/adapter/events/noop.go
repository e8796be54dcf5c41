package events

import (
	"context"

	"github.com/simaogato/billsplit-backend/internal/domain"
)

// NoopPublisher discards every event
// Used when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.LedgerEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
