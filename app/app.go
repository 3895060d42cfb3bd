// Package app wires the Store, gateway clients, Orchestrator, Dispatcher,
// and HTTP server together and supervises them with an errgroup, following
// the teacher's app.App.
package app

import (
	"context"
	"fmt"
	"time"

	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"ordersaga/cache"
	"ordersaga/config"
	"ordersaga/db"
	"ordersaga/gateway"
	"ordersaga/httpapi"
	"ordersaga/outbox"
	"ordersaga/saga"
	"ordersaga/tracing"
)

type App struct {
	store         *db.Store
	httpServer    *httpapi.Server
	dispatcher    *outbox.Dispatcher
	traceProvider *tracesdk.TracerProvider
}

func New(cfg *config.Config, store *db.Store) (*App, error) {
	traceProvider, err := tracing.ConfigureTraceProvider(cfg.Tracing.JaegerEndpoint)
	if err != nil {
		return nil, fmt.Errorf("app: configure tracing: %w", err)
	}

	catalogClient := gateway.NewCatalogClient(cfg.Services.CatalogURL, cfg.Services.Timeout)
	seatingClient := gateway.NewSeatingClient(cfg.Services.SeatingURL, cfg.Services.Timeout)
	paymentClient := gateway.NewPaymentClient(cfg.Services.PaymentURL, cfg.Services.Timeout)
	notificationClient := gateway.NewNotificationClient(cfg.Services.NotificationURL, cfg.Services.Timeout)

	idempotencyCache := cache.NewRedisIdempotencyCache(cfg.Redis.Addr)

	orchestrator := &saga.Orchestrator{
		Store:          store,
		Catalog:        catalogClient,
		SeatGetter:     seatingClient,
		SeatReserve:    seatingClient,
		SeatAlloc:      seatingClient,
		SeatRelease:    seatingClient,
		Charger:        paymentClient,
		Refunder:       paymentClient,
		Cache:          idempotencyCache,
		ReservationTTL: time.Duration(cfg.Seat.ReservationTTLSeconds) * time.Second,
	}

	dispatcher := &outbox.Dispatcher{
		Store:       store,
		Publisher:   tracing.PublisherDecorator{Publisher: notificationClient},
		Interval:    cfg.Outbox.DispatchInterval,
		Concurrency: cfg.Outbox.BatchConcurrency,
	}

	httpServer := httpapi.NewServer(
		cfg.HTTP.Addr,
		OrchestratorAdapter{orchestrator},
		StoreReader{store},
		StoreReader{store},
		store,
		idempotencyCache,
	)

	return &App{
		store:         store,
		httpServer:    httpServer,
		dispatcher:    dispatcher,
		traceProvider: traceProvider,
	}, nil
}

// Run migrates the schema and then supervises the HTTP server and outbox
// dispatcher until ctx is cancelled; either one failing tears down the
// other.
func (a *App) Run(ctx context.Context) error {
	if err := a.store.Migrate(); err != nil {
		return fmt.Errorf("app: migrate schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.httpServer.Run(ctx)
	})

	g.Go(func() error {
		return a.dispatcher.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.traceProvider.Shutdown(context.Background())
	})

	return g.Wait()
}
