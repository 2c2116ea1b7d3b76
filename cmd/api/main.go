package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geogate/internal/adapters/http"
	natsadapter "github.com/samirrijal/geogate/internal/adapters/nats"
	"github.com/samirrijal/geogate/internal/adapters/upstream"
	"github.com/samirrijal/geogate/internal/core/ports"
	"github.com/samirrijal/geogate/internal/core/usecases"
	"github.com/samirrijal/geogate/internal/pkg/config"
	"github.com/samirrijal/geogate/internal/pkg/logging"
	"github.com/samirrijal/geogate/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geogate-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// NATS (optional): provenance events and the WebSocket relay
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub.Conn()
		}
	}

	// Upstream providers
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

	// Use cases
	orch := usecases.NewOrchestrator(client, usecases.OrchestratorConfig{
		PadDegrees: cfg.Region.PadDegrees,
		WideRegion: cfg.Region.Wide(),
	})
	buildingSvc := usecases.NewBuildingService(orch, upstream.BuildingChain(sources), publisher)
	terraceSvc := usecases.NewTerraceService(orch, upstream.TerraceChain(sources), publisher, cfg.Fallback.Placeholder)

	deps := &http.Dependencies{
		Buildings:      buildingSvc,
		Terraces:       terraceSvc,
		DefaultBBox:    cfg.Region.Default(),
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		NATS:           natsConn,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GeoGate API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "X-Data-Source, ETag",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr,
			"building_sources", buildingSvc.Strategies(),
			"terrace_sources", terraceSvc.Strategies())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight geodata requests may be waiting on slow upstreams
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Flush provenance events before the NATS connection drains
	buildingSvc.Wait()
	terraceSvc.Wait()

	slog.Info("server stopped")
}
