// Package config defines the service's configuration surface. It is parsed
// once in main() with jessevdk/go-flags, which fills fields from either a
// command-line flag or its "env" tag — the same knob can be set either way,
// which keeps local runs (flags) and container deployments (env) both
// convenient.
package config

import (
	"time"

	flags "github.com/jessevdk/go-flags"
)

type Config struct {
	DB struct {
		ConnectionString string `long:"db-dsn" env:"DB_CONNECTION_STRING" required:"true" description:"Postgres connection string"`
	} `group:"db"`

	Services struct {
		CatalogURL      string        `long:"catalog-url" env:"SERVICES_CATALOG_URL" required:"true"`
		SeatingURL      string        `long:"seating-url" env:"SERVICES_SEATING_URL" required:"true"`
		PaymentURL      string        `long:"payment-url" env:"SERVICES_PAYMENT_URL" required:"true"`
		NotificationURL string        `long:"notification-url" env:"SERVICES_NOTIFICATION_URL" required:"true"`
		Timeout         time.Duration `long:"client-timeout" env:"SERVICES_CLIENT_TIMEOUT" default:"30s"`
	} `group:"services"`

	Seat struct {
		ReservationTTLSeconds int `long:"seat-reservation-ttl" env:"SEAT_RESERVATION_TTL_SECONDS" default:"900"`
	} `group:"seat"`

	Outbox struct {
		DispatchInterval time.Duration `long:"outbox-dispatch-interval" env:"OUTBOX_DISPATCH_INTERVAL" default:"60s"`
		BatchConcurrency int           `long:"outbox-batch-concurrency" env:"OUTBOX_BATCH_CONCURRENCY" default:"16"`
	} `group:"outbox"`

	Redis struct {
		Addr string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379"`
	} `group:"redis"`

	Tracing struct {
		JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT"`
	} `group:"tracing"`

	HTTP struct {
		Addr string `long:"http-addr" env:"HTTP_ADDR" default:":8080"`
	} `group:"http"`
}

// Parse reads flags and environment variables into a Config. args is
// typically os.Args[1:].
func Parse(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default&^flags.PrintErrors)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}
