package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Buildings      *usecases.BuildingService
	Terraces       *usecases.TerraceService
	DefaultBBox    domain.BoundingBox // used when bbox is missing or unusable
	RequestTimeout time.Duration      // per geodata request, 90s when zero
	NATS           *nats.Conn         // optional, enables event relay over /ws
	DocsPath       string             // OpenAPI document, api/openapi.yaml when empty
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 90 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) docsPath() string {
	if d.DocsPath == "" {
		return "api/openapi.yaml"
	}
	return d.DocsPath
}
