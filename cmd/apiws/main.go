// Command apiws runs the contact message gateway: a REST API for contact
// messages guarded by per-project API keys and rate limits, plus a
// websocket relay that fans new messages out to connected clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/api"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/database"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/influxdb"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/mqtt"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/metrics"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/session"
	"github.com/rowanabisaiutp/api-websocket-messages/migrations"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// redisPingTimeout bounds the startup probe of the optional stats store.
const redisPingTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// backends collects the optional integrations that came up at startup.
// A nil field means the integration is disabled or unreachable.
type backends struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	redis  *redis.Client
}

func (b *backends) close(log *logging.Logger) {
	if b.influx != nil {
		log.Info("closing InfluxDB connection")
		if err := b.influx.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	}
	if b.mqtt != nil {
		log.Info("disconnecting from MQTT")
		if err := b.mqtt.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Error("error closing Redis", "error", err)
		}
	}
}

// run wires every component and blocks until ctx is cancelled or a
// component fails. It is separate from main so tests can drive it.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting gateway", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"auth_mode", cfg.Security.Mode,
		"projects", len(cfg.Projects),
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	registry, err := project.New(cfg.Projects)
	if err != nil {
		return fmt.Errorf("loading projects: %w", err)
	}
	users, err := auth.NewDirectory(cfg.Security.Users)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	contacts := contact.NewSQLiteRepository(db.DB)
	trail := audit.NewSQLiteRepository(db.DB)

	m := metrics.New()
	stats := ratelimit.NewMemoryStats()
	limiter := ratelimit.New()

	b := connectBackends(ctx, cfg, log)
	defer b.close(log)

	recorders := []ratelimit.StatsRecorder{stats, m}
	hubOpts := []relay.Option{relay.WithMetrics(m)}
	health := map[string]api.HealthChecker{"database": db}

	deps := api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		WSPath:   cfg.WebSocket.Path,
		Logger:   log,
		Version:  version,
		Projects: registry,
		Contacts: contacts,
		Audit:    trail,
		Users:    users,
		Metrics:  m,
		Limiter:  limiter,
		Stats:    stats,
		DB:       db,
		Health:   health,
	}

	if b.mqtt != nil {
		topics := b.mqtt.Topics()
		hubOpts = append(hubOpts, relay.WithMirror(relay.NewMQTTMirror(b.mqtt, topics.RelayEvent, byte(cfg.MQTT.QoS))))
		health["mqtt"] = b.mqtt
		deps.MQTT = b.mqtt
	}
	if b.influx != nil {
		recorders = append(recorders, ratelimit.NewPointStats(b.influx))
		hubOpts = append(hubOpts, relay.WithMirror(relay.NewInfluxMirror(b.influx)))
		health["influxdb"] = b.influx
		deps.Influx = b.influx
	}
	if b.redis != nil {
		rs := ratelimit.NewRedisStats(b.redis,
			ratelimit.WithPrefix(cfg.Redis.Prefix),
			ratelimit.WithTTL(time.Duration(cfg.Redis.TTLHours)*time.Hour),
			ratelimit.WithTrackKeys(cfg.Redis.TrackKeys),
		)
		recorders = append(recorders, rs)
		rdb := b.redis
		health["redis"] = api.HealthFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		deps.RedisStats = rs
	}

	deps.Gate, err = gate.New(cfg.Security, gate.Deps{
		Registry: registry,
		Limiter:  limiter,
		Recorder: ratelimit.Fanout(recorders...),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating request gate: %w", err)
	}

	hub := relay.NewHub(log, hubOpts...)
	deps.Relay = hub

	deps.Sessions, err = session.NewManager(session.Deps{
		Config:          cfg.WebSocket,
		Registry:        registry,
		Relay:           hub,
		Store:           contacts,
		Logger:          log,
		Metrics:         m,
		Audit:           trail,
		AllowClientRole: cfg.Security.AllowClientRoleAssertion,
	})
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if interval := cfg.GetSweepInterval(); interval > 0 {
		g.Go(func() error {
			limiter.Run(gctx, interval)
			return nil
		})
	}

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})

	log.Info("gateway ready", "address", srv.Addr(), "ws_path", cfg.WebSocket.Path)

	err = g.Wait()
	if b.influx != nil {
		b.influx.Flush()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("gateway stopped")
	return nil
}

// connectBackends brings up the optional integrations. A failure is logged
// and the integration stays off; the gateway runs without it.
func connectBackends(ctx context.Context, cfg *config.Config, log *logging.Logger) *backends {
	b := &backends{}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, event mirror disabled", "error", err)
		} else {
			client.SetLogger(log.Component("mqtt"))
			b.mqtt = client
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			log.Warn("InfluxDB unavailable, time series disabled", "error", err)
		} else {
			client.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			b.influx = client
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		}
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, rate-limit statistics stay in memory", "error", err)
			rdb.Close() //nolint:errcheck // never used
		} else {
			b.redis = rdb
			log.Info("Redis connected", "addr", cfg.Redis.Addr)
		}
	}

	return b
}

// getConfigPath returns APIWS_CONFIG, or the default path when unset.
func getConfigPath() string {
	if path := os.Getenv("APIWS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
