package telemetry

// TracerName is the instrumentation scope of every geogate span.
const TracerName = "github.com/samirrijal/geogate"

// Span names.
const (
	SpanResolve = "geogate.resolve"          // one layer request across the whole chain
	SpanAttempt = "geogate.upstream_attempt" // one call to one endpoint
	SpanPublish = "geogate.publish_event"
)

// Span attribute keys.
const (
	AttrLayer         = "geogate.layer"
	AttrBBox          = "geogate.bbox"
	AttrSource        = "geogate.source"
	AttrStrategyIndex = "geogate.strategy_index" // fallback depth of the winning strategy
	AttrStrategy      = "geogate.strategy"
	AttrEndpoint      = "geogate.endpoint"
	AttrVariant       = "geogate.variant"
	AttrFeatures      = "geogate.features"
	AttrSubject       = "messaging.destination.name"
)
