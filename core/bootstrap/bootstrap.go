package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	coredatabase "github.com/m3rciful/gobot-ui/core/database"
	"github.com/m3rciful/gobot-ui/core/logger"
	"github.com/m3rciful/gobot-ui/core/telegram/state"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	DialRedis  func(ctx context.Context, addr, password string, db int, opts state.RedisOptions) (*state.RedisStorage, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// Storage backs FSM state and layout data.
	Storage state.Storage
	// DB is set only for the postgres driver.
	DB *sqlx.DB
}

// Close releases the storage (and the pool behind it).
func (r *Result) Close() error {
	if r == nil || r.Storage == nil {
		return nil
	}
	return r.Storage.Close()
}

// DatabaseConfig converts the storage section into database settings.
func DatabaseConfig(pc coreconfig.PostgresConfig) coredatabase.Config {
	return coredatabase.Config{
		Host:           pc.Host,
		Port:           pc.Port,
		User:           pc.User,
		Password:       pc.Password,
		Name:           pc.Name,
		SSLMode:        pc.SSLMode,
		MaxConnections: pc.MaxConnections,
	}
}

// Run initializes the logger and opens the configured FSM storage.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	sc := opts.Config.Storage
	res := &Result{}
	switch sc.Driver {
	case coreconfig.StorageRedis:
		dial := opts.DialRedis
		if dial == nil {
			dial = state.DialRedis
		}
		rs, err := dial(ctx, sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB, state.RedisOptions{
			Prefix:   sc.Redis.Prefix,
			StateTTL: sc.Redis.StateTTL,
			DataTTL:  sc.Redis.DataTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis storage: %w", err)
		}
		res.Storage = rs
	case coreconfig.StoragePostgres:
		dbCfg := DatabaseConfig(sc.Postgres)
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		if sc.Postgres.Migrate {
			migrate := opts.Migrate
			if migrate == nil {
				migrate = coredatabase.RunMigrations
			}
			if err := migrate(ctx, dbCfg); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
			}
		}
		res.DB = db
		res.Storage = state.NewPostgresStorage(db)
	default:
		res.Storage = state.NewMemoryStorage()
	}

	logger.Info(ctx, "app", "storage.ready",
		slog.String("status", "ok"),
		slog.String("driver", sc.Driver),
	)
	return res, nil
}
