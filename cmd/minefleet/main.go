// Minefleet Core aggregates mining fleet telemetry into paginated list
// views, keeps the operator's multi-selection across miners, containers,
// cabinets and PDU sockets, and dispatches bulk action intents for it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/minefleet-core/migrations"

	"github.com/nerrad567/minefleet-core/internal/api"
	"github.com/nerrad567/minefleet-core/internal/audit"
	"github.com/nerrad567/minefleet-core/internal/auth"
	"github.com/nerrad567/minefleet-core/internal/comment"
	"github.com/nerrad567/minefleet-core/internal/filtertree"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/config"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/database"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/logging"
	"github.com/nerrad567/minefleet-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/minefleet-core/internal/listview"
	"github.com/nerrad567/minefleet-core/internal/poller"
	"github.com/nerrad567/minefleet-core/internal/selection"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Minefleet Core", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	users := auth.NewUserRepository(db.DB)
	if _, err := auth.SeedAdmin(ctx, users, log); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}
	authenticator := auth.NewAuthenticator(users, cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.AccessTokenTTL)*time.Minute)
	authenticator.SetLogger(log)

	view := listview.NewOrchestrator()
	view.SetLogger(log)

	store := selection.NewStore()
	store.SetLogger(log)
	store.SetSingleCabinet(cfg.Selection.SingleCabinet)

	snapshots := selection.NewSQLiteSnapshotRepository(db.DB)
	restoreSession(ctx, log, cfg.Selection.SnapshotName, snapshots, store, view)

	comments := comment.NewSQLiteRepository(db.DB)
	health := map[string]api.HealthChecker{"database": db}

	pollCfg := poller.Config{
		URL:      cfg.Poller.BackendURL,
		Interval: cfg.GetPollInterval(),
		Timeout:  cfg.GetPollTimeout(),
		Limit:    cfg.Poller.Limit,
		Site:     cfg.Site.ID,
		Sink:     view,
		Comments: comments,
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		pollCfg.Workers = influxClient
		pollCfg.Summary = influxClient
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled, pool hashrates unavailable")
	}

	fleetPoller := poller.New(pollCfg)
	fleetPoller.SetLogger(log)

	apiDeps := api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Version:      version,
		View:         view,
		Auth:         authenticator,
		Comments:     comments,
		Selection:    store,
		Snapshots:    snapshots,
		Audit:        audit.NewSQLiteRepository(db.DB),
		SnapshotName: cfg.Selection.SnapshotName,
		Refresh:      fleetPoller.TriggerNow,
		Health:       health,
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

		if err := mqttClient.OnRefresh(fleetPoller.TriggerNow); err != nil {
			log.Warn("refresh subscription failed", "error", err)
		}
		apiDeps.Actions = mqttClient
		health["mqtt"] = mqttClient
		log.Info("MQTT ready", "broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))
	} else {
		log.Info("MQTT disabled, bulk actions unavailable")
	}

	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	fleetPoller.Start(ctx)
	defer fleetPoller.Stop()

	log.Info("Minefleet Core started", "api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// restoreSession loads the persisted selection and active filter. Missing or
// unreadable state is logged and skipped.
func restoreSession(ctx context.Context, log *logging.Logger, name string,
	repo selection.Repository, store *selection.Store, view *listview.Orchestrator,
) {
	snap, err := repo.LoadSnapshot(ctx, name)
	switch {
	case errors.Is(err, selection.ErrSnapshotNotFound):
	case err != nil:
		log.Warn("loading selection snapshot failed", "error", err)
	default:
		if err := store.Restore(snap); err != nil {
			log.Warn("persisted selection rejected", "error", err)
		} else {
			log.Info("selection restored", "devices", len(snap.Devices))
		}
	}

	tuples, err := repo.LoadFilter(ctx, name)
	switch {
	case errors.Is(err, selection.ErrFilterNotFound):
	case err != nil:
		log.Warn("loading saved filter failed", "error", err)
	default:
		if values := filtertree.ResolveValues(tuples); len(values) > 0 {
			view.SetFilter(listview.Filter{Values: values})
			log.Info("filter restored", "keys", len(values))
		}
	}
}

func getConfigPath() string {
	if path := os.Getenv("MINEFLEET_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
