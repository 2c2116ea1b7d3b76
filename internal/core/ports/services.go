package ports

import (
	"context"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// EventPublisher publishes provenance events to a message broker.
type EventPublisher interface {
	PublishResolution(ctx context.Context, event *domain.ResolutionEvent) error
}
