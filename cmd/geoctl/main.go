// Command geoctl resolves one layer for a bbox from the command line and
// prints the same JSON body the API would return. With -watch it instead
// tails the resolution events the API publishes on NATS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/geogate/internal/adapters/http"
	natsadapter "github.com/samirrijal/geogate/internal/adapters/nats"
	"github.com/samirrijal/geogate/internal/adapters/upstream"
	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/geo"
	"github.com/samirrijal/geogate/internal/core/usecases"
	"github.com/samirrijal/geogate/internal/pkg/config"
	"github.com/samirrijal/geogate/internal/pkg/logging"
)

func main() {
	layer := flag.String("layer", "terraces", "layer to resolve: buildings or terraces")
	bbox := flag.String("bbox", "", "lonMin,latMin,lonMax,latMax (default region when empty)")
	watch := flag.Bool("watch", false, "tail resolution events from NATS instead of resolving")
	flag.Parse()

	cfg, err := config.Load("geogate-geoctl")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Results go to stdout, logs to stderr
	logging.SetupTo(os.Stderr, cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *watch {
		if err := tail(ctx, cfg.NATS.URL, *layer); err != nil {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	box, defaulted, err := geo.ParseBBox(*bbox, cfg.Region.Default())
	if err != nil {
		log.Fatalf("bbox: %v", err)
	}

	client := upstream.NewClient(upstream.Config{
		Timeout:      cfg.Upstream.TimeoutDuration(),
		APIKey:       cfg.Upstream.APIKey,
		APIKeyHeader: cfg.Upstream.APIKeyHeader,
		UserAgent:    cfg.Upstream.UserAgent,
		MaxPages:     cfg.Upstream.MaxPages,
	})
	sources := upstream.Sources{
		Bag3DWFS:      cfg.Sources.Bag3DWFS,
		Bag3DLevels:   cfg.Sources.Bag3DLevels,
		PDOKBAGWFS:    cfg.Sources.PDOKBAGWFS,
		AmsterdamWFS:  cfg.Sources.AmsterdamWFS,
		AmsterdamREST: cfg.Sources.AmsterdamREST,
		Overpass:      cfg.Sources.Overpass,
	}
	orch := usecases.NewOrchestrator(client, usecases.OrchestratorConfig{
		PadDegrees: cfg.Region.PadDegrees,
		WideRegion: cfg.Region.Wide(),
	})

	var res *domain.Collection
	switch domain.Layer(*layer) {
	case domain.LayerBuildings:
		res = usecases.NewBuildingService(orch, upstream.BuildingChain(sources), nil).Find(ctx, box, defaulted)
	case domain.LayerTerraces:
		res = usecases.NewTerraceService(orch, upstream.TerraceChain(sources), nil, cfg.Fallback.Placeholder).Find(ctx, box, defaulted)
	default:
		log.Fatalf("unknown layer %q", *layer)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(http.LayerResponse(res)); err != nil {
		log.Fatalf("encode: %v", err)
	}
	if res.Empty() {
		cancel()
		os.Exit(2)
	}
}

// tail prints one line per resolution event until ctx is cancelled.
func tail(ctx context.Context, url, layer string) error {
	if url == "" {
		return fmt.Errorf("nats.url is not configured")
	}
	sub, err := natsadapter.NewSubscriber(url)
	if err != nil {
		return err
	}
	defer sub.Close()

	if layer == "all" {
		layer = ""
	}
	err = sub.SubscribeResolutions(ctx, layer, func(_ context.Context, e *domain.ResolutionEvent) error {
		fmt.Printf("%s %-9s source=%-16s count=%-5d attempts=%d errors=%d took=%s\n",
			e.Time.Format("15:04:05"), e.Layer, e.Source, e.Count, e.Attempts, len(e.Errors), e.Duration)
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("watching resolution events", "subject", natsadapter.ResolvedSubject(layer))
	<-ctx.Done()
	return nil
}
