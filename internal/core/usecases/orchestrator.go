package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/geo"
	"github.com/samirrijal/geogate/internal/core/normalize"
	"github.com/samirrijal/geogate/internal/core/ports"
	"github.com/samirrijal/geogate/internal/pkg/logging"
	"github.com/samirrijal/geogate/internal/pkg/metrics"
	"github.com/samirrijal/geogate/internal/pkg/telemetry"
)

// SourceNone is the source reported when every strategy came back empty.
const SourceNone = "none"

// ErrExhausted is reported in Collection.Error when no strategy produced data.
var ErrExhausted = errors.New("no features from any source")

// OrchestratorConfig holds the region settings shared by all chains.
type OrchestratorConfig struct {
	PadDegrees     float64              // margin for EscalatePad
	WideRegion     domain.BoundingBox   // target of EscalateRegion
	TracerProvider trace.TracerProvider // global provider when nil
}

// Orchestrator resolves a bbox against an ordered chain of strategies.
type Orchestrator struct {
	upstream ports.Upstream
	cfg      OrchestratorConfig
	tracer   trace.Tracer
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(upstream ports.Upstream, cfg OrchestratorConfig) *Orchestrator {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Orchestrator{
		upstream: upstream,
		cfg:      cfg,
		tracer:   tp.Tracer(telemetry.TracerName),
	}
}

type outcome struct {
	result   normalize.Result
	endpoint string
	variant  variant
}

// Resolve tries each strategy in order and returns the first non-empty result.
// It never fails: exhaustion yields an empty collection carrying the diagnostic trail.
func (o *Orchestrator) Resolve(ctx context.Context, layer domain.Layer, box domain.BoundingBox, chain []Strategy) *domain.Collection {
	ctx, span := o.tracer.Start(ctx, telemetry.SpanResolve, trace.WithAttributes(
		attribute.String(telemetry.AttrLayer, string(layer)),
		attribute.String(telemetry.AttrBBox, box.String()),
	))
	defer span.End()

	diag := domain.Diagnostics{
		BBoxWGS:  box.Slice(),
		Attempts: []domain.Attempt{},
		Errors:   []string{},
	}

	for i, s := range chain {
		if err := ctx.Err(); err != nil {
			diag.Errors = append(diag.Errors, fmt.Sprintf("resolve aborted before %s: %v", s.Name, err))
			break
		}
		best, ok := o.runStrategy(ctx, s, box, &diag)
		if !ok {
			continue
		}

		span.SetAttributes(attribute.String(telemetry.AttrSource, s.Name), attribute.Int(telemetry.AttrStrategyIndex, i))
		diag.Endpoint = best.endpoint
		diag.Level = best.variant.level
		diag.Variant = best.variant.name

		c := &domain.Collection{
			Layer:       layer,
			Source:      s.Name,
			Features:    featureCollection(best.result.Polygons),
			Diagnostics: diag,
		}
		if s.Profile.KeepPoints {
			c.Points = featureCollection(best.result.Points)
		}
		if s.Profile.Heights {
			stats := best.result.Stats
			c.Stats = &stats
		}
		return c
	}

	logging.FromContext(ctx).Warn("all sources exhausted",
		"layer", layer,
		"bbox", box.String(),
		"attempts", len(diag.Attempts),
	)
	span.SetAttributes(attribute.String(telemetry.AttrSource, SourceNone))
	span.SetStatus(codes.Error, ErrExhausted.Error())

	return &domain.Collection{
		Layer:       layer,
		Source:      SourceNone,
		Features:    geojson.NewFeatureCollection(),
		Error:       ErrExhausted.Error(),
		Diagnostics: diag,
	}
}

// runStrategy walks the variants of one strategy. Escalations only go to
// endpoints that answered the previous variant; a failed endpoint is never
// asked again, and when none answered the strategy is abandoned.
func (o *Orchestrator) runStrategy(ctx context.Context, s Strategy, box domain.BoundingBox, diag *domain.Diagnostics) (*outcome, bool) {
	var best *outcome
	endpoints := s.Endpoints
	for _, v := range s.variants(box, o.cfg.WideRegion, o.cfg.PadDegrees) {
		if len(endpoints) == 0 || ctx.Err() != nil {
			break
		}
		q := Query{BBox: v.box, Level: v.level}
		if s.Area == AreaRD {
			q.RD = geo.Project(v.box)
			if diag.BBoxRD == nil {
				diag.BBoxRD = q.RD.Slice()
			}
		}

		res, endpoint, answered := o.tryEndpoints(ctx, s, endpoints, v, q, diag)
		endpoints = answered
		if endpoint == "" {
			continue
		}
		cand := &outcome{result: res, endpoint: endpoint, variant: v}
		if s.Selection == SelectFirst {
			return cand, true
		}
		if best == nil || cand.result.Count() < best.result.Count() {
			best = cand
		}
	}
	return best, best != nil
}

// tryEndpoints returns the first endpoint answering with at least one feature,
// or "" when none did. answered lists the endpoints that responded without
// error, in order, including the winning one.
func (o *Orchestrator) tryEndpoints(ctx context.Context, s Strategy, endpoints []string, v variant, q Query, diag *domain.Diagnostics) (res normalize.Result, winner string, answered []string) {
	log := logging.FromContext(ctx)

	for _, endpoint := range endpoints {
		req := s.Build(endpoint, q)

		attemptCtx, span := o.tracer.Start(ctx, telemetry.SpanAttempt, trace.WithAttributes(
			attribute.String(telemetry.AttrStrategy, s.Name),
			attribute.String(telemetry.AttrEndpoint, endpoint),
			attribute.String(telemetry.AttrVariant, v.name),
		))
		start := time.Now()
		got, err := o.fetch(attemptCtx, s, req)
		metrics.UpstreamDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())

		attempt := domain.Attempt{
			Strategy: s.Name,
			Endpoint: endpoint,
			Variant:  v.name,
			Level:    v.level,
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			metrics.UpstreamRequests.WithLabelValues(s.Name, "error").Inc()

			attempt.Error = err.Error()
			diag.Attempts = append(diag.Attempts, attempt)
			diag.Errors = append(diag.Errors, fmt.Sprintf("%s %s: %v", s.Name, endpoint, err))
			log.Warn("upstream attempt failed",
				"strategy", s.Name,
				"endpoint", endpoint,
				"variant", v.name,
				"error", err,
			)
			if ctx.Err() != nil {
				return normalize.Result{}, "", answered
			}
			continue
		}

		answered = append(answered, endpoint)
		attempt.Features = got.Count()
		diag.Attempts = append(diag.Attempts, attempt)
		span.SetAttributes(attribute.Int(telemetry.AttrFeatures, got.Count()))
		span.End()

		if skipped := got.Stats.SkippedTooLow; skipped > 0 {
			metrics.FeaturesSkipped.WithLabelValues("too_low").Add(float64(skipped))
		}

		log.Debug("upstream attempt",
			"strategy", s.Name,
			"endpoint", endpoint,
			"variant", v.name,
			"level", v.level,
			"features", got.Count(),
			"duration", time.Since(start),
		)

		if got.Count() == 0 {
			metrics.UpstreamRequests.WithLabelValues(s.Name, "empty").Inc()
			continue
		}
		metrics.UpstreamRequests.WithLabelValues(s.Name, "ok").Inc()
		return got, endpoint, answered
	}
	return normalize.Result{}, "", answered
}

// fetch performs one upstream call and normalizes the payload.
func (o *Orchestrator) fetch(ctx context.Context, s Strategy, req domain.UpstreamRequest) (normalize.Result, error) {
	n := normalize.New(s.Profile)

	switch s.Kind {
	case domain.ProviderOverpass:
		els, err := o.upstream.QueryOverpass(ctx, req)
		if err != nil {
			return normalize.Result{}, err
		}
		return n.Elements(els), nil
	case domain.ProviderREST:
		raw, err := o.upstream.FetchAll(ctx, req)
		if err != nil {
			return normalize.Result{}, err
		}
		return n.Features(raw), nil
	default:
		raw, err := o.upstream.FetchCollection(ctx, req)
		if err != nil {
			return normalize.Result{}, err
		}
		return n.Features(raw), nil
	}
}

func featureCollection(features []*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	return fc
}
