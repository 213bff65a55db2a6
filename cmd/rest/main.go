package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-networking-be/internal/bootstrap"
	"ai-networking-be/internal/config"
	"ai-networking-be/internal/server"
	"ai-networking-be/internal/tracer"
	"ai-networking-be/pkg/database"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Database (optional; contacts stay in memory without one)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Server, sweeper, event relay and socket hub live and die together
	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return container.Sweeper.Run(gctx) })
	g.Go(func() error { return container.ConsumerService.Consume(gctx) })
	g.Go(func() error { return container.Hub.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Printf("Shutting down: %v", err)
	}
}
