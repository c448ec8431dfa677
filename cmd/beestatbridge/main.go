// Beestat Bridge - thermostat telemetry for Home Assistant
//
// This is the main entry point for the bridge. It polls the Beestat API for
// thermostat and remote sensor readings, keeps the latest snapshot in
// memory, and exposes it as Home Assistant MQTT discovery entities, a small
// REST API and a WebSocket feed.
//
// Usage:
//
//	beestatbridge                 run the bridge
//	beestatbridge token [flags]   print a bearer token for the mutating API routes
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/beestat-bridge/internal/api"
	"github.com/nerrad567/beestat-bridge/internal/audit"
	"github.com/nerrad567/beestat-bridge/internal/beestat"
	"github.com/nerrad567/beestat-bridge/internal/coordinator"
	"github.com/nerrad567/beestat-bridge/internal/entry"
	"github.com/nerrad567/beestat-bridge/internal/homeassistant"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/config"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/database"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/beestat-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/beestat-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure. A Beestat
//     key rejected on the first refresh is a failure.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Beestat bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load or seed the config entry
	entries := entry.NewSQLiteRepository(db.DB)
	ent, created, err := entry.Ensure(ctx, entries, entry.Seed{
		APIKey:                cfg.Beestat.APIKey,
		UpdateIntervalMinutes: cfg.Beestat.UpdateIntervalMinutes,
	})
	if err != nil {
		if errors.Is(err, entry.ErrEmptyAPIKey) {
			return fmt.Errorf("no stored config entry and no beestat.api_key configured (set BEESTAT_API_KEY): %w", err)
		}
		return fmt.Errorf("loading config entry: %w", err)
	}
	log.Info("config entry loaded",
		"entry_id", ent.ID,
		"created", created,
		"update_interval_minutes", ent.UpdateIntervalMinutes,
	)

	newClient := clientFactory(cfg, log.Component("beestat"))
	client, err := newClient(ent.APIKey)
	if err != nil {
		return fmt.Errorf("creating Beestat client: %w", err)
	}

	coord, err := coordinator.New(coordinator.Options{
		Client:   client,
		Interval: ent.UpdateInterval(),
		Logger:   log.Component("coordinator"),
	})
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var publisher *homeassistant.Publisher
	if cfg.MQTT.Enabled {
		topics := mqtt.NewTopics(cfg.HomeAssistant)
		mqttClient, err = mqtt.Connect(cfg.MQTT, topics)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		publisher, err = homeassistant.New(homeassistant.Options{
			Client:          mqttClient,
			Topics:          topics,
			TemperatureUnit: cfg.HomeAssistant.TemperatureUnit,
			Logger:          log.Component("homeassistant"),
		})
		if err != nil {
			return fmt.Errorf("creating Home Assistant publisher: %w", err)
		}

		// Announce everything again after a reconnect.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			publisher.Rediscover()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Background consumers run until shutdown. The deferred wait runs before
	// MQTT is closed so the publisher can mark the bridge offline.
	runCtx, cancelRun := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	defer func() {
		cancelRun()
		_ = g.Wait()
	}()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	defer coord.Subscribe(hub.HandleUpdate)()

	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
		defer coord.Subscribe(publisher.Handle)()
	}

	if influxClient != nil {
		defer coord.Subscribe(func(u coordinator.Update) {
			influxClient.WritePoll(pollSample(u))
		})()
	}

	// First refresh. Stop must run even when Start fails.
	startErr := coord.Start(ctx)
	defer func() {
		log.Info("stopping coordinator")
		coord.Stop()
	}()
	if startErr != nil {
		return fmt.Errorf("initial refresh: %w", startErr)
	}
	log.Info("coordinator started",
		"state", coord.State().String(),
		"interval", coord.Interval().String(),
	)

	// Start the API (optional)
	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Security:    cfg.Security,
			Logger:      log.Component("api"),
			Coordinator: coord,
			Entries:     entries,
			Audit:       audit.NewSQLiteRepository(db.DB),
			NewClient: func(key string) (api.KeyClient, error) {
				c, err := newClient(key)
				if err != nil {
					return nil, err
				}
				return c, nil
			},
			Hub:     hub,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-gctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (if enabled)
	// 2. Coordinator
	// 3. Subscriptions, then background consumers
	// 4. InfluxDB (if enabled)
	// 5. MQTT (if enabled)
	// 6. Database
	cancelRun()
	if err := g.Wait(); err != nil {
		return fmt.Errorf("background task: %w", err)
	}

	log.Info("Beestat bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BEESTAT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BEESTAT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// clientFactory returns a constructor for Beestat clients sharing the
// configured endpoint and timeout.
func clientFactory(cfg *config.Config, log *logging.Logger) func(apiKey string) (*beestat.Client, error) {
	return func(apiKey string) (*beestat.Client, error) {
		return beestat.NewClient(beestat.Options{
			APIKey:   apiKey,
			Endpoint: cfg.Beestat.Endpoint,
			Timeout:  cfg.GetRequestTimeout(),
			Logger:   log,
		})
	}
}

// pollSample converts a coordinator update into a metrics sample.
func pollSample(u coordinator.Update) influxdb.PollSample {
	return influxdb.PollSample{
		At:                  u.At,
		Duration:            u.Duration,
		State:               u.State.String(),
		Trigger:             string(u.Trigger),
		Success:             u.Err == nil,
		Available:           u.Available(),
		Thermostats:         u.Snapshot.Len(),
		RemoteSensors:       u.Snapshot.SensorCount(),
		NormalizationErrors: len(u.Diagnostics),
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// runToken prints a signed bearer token for the mutating API routes.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "operator", "token subject, recorded in API logs")
	ttl := fs.Duration("ttl", api.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := api.IssueToken(cfg.Security.JWT, *subject, *ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}
