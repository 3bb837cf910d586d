// Package bootstrap turns a loaded Config into live connections and the
// pipeline collaborators the commands share.
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/churn"
	"github.com/jmehdipour/crm-analytics/internal/config"
	"github.com/jmehdipour/crm-analytics/internal/db"
	"github.com/jmehdipour/crm-analytics/internal/kafka"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
	"github.com/jmehdipour/crm-analytics/internal/modelstore"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
	"github.com/jmehdipour/crm-analytics/internal/repository"
)

// LoadConfig loads the configuration, initializes the global logger and
// registers the metrics.
func LoadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Encoding)
	metrics.MustRegister(prometheus.DefaultRegisterer)
	return cfg, nil
}

// ClickHouse facts are skipped for a while after this many failed writes.
const (
	factsFailThreshold = 3
	factsOpenFor       = 30 * time.Second
)

// Needs selects the optional parts Open connects.
type Needs struct {
	Warehouse bool // MySQL warehouse and tenant registry
	Events    bool // job event publisher
}

// App holds the open connections. Nil fields were not needed or not
// configured.
type App struct {
	Cfg        config.Config
	MySQL      *sqlx.DB
	ClickHouse *sqlx.DB
	Redis      *redis.Client
	Store      modelstore.Store
	Facts      repository.RunFactsRepository
	Events     *kafka.Publisher
}

// Open connects what needs and cfg ask for. ClickHouse and Redis are opened
// whenever they are configured.
func Open(cfg config.Config, needs Needs) (*App, error) {
	a := &App{Cfg: cfg}
	if err := a.open(needs); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(needs Needs) (err error) {
	cfg := a.Cfg

	if cfg.Redis.Enabled() {
		a.Redis, err = db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
	}

	a.Store, err = modelstore.New(cfg.ModelStore, a.Redis, churn.ValidateEncoded)
	if err != nil {
		return fmt.Errorf("model store: %w", err)
	}

	if needs.Warehouse {
		a.MySQL, err = db.NewMySQLConnection(cfg.MySQL.DSN, poolOpts(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
	}

	if cfg.ClickHouse.Enabled() {
		a.ClickHouse, err = db.NewClickHouseConnection(cfg.ClickHouse.DSN, poolOpts(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		a.Facts = repository.GuardRunFacts(
			repository.NewRunFactsRepository(a.ClickHouse, cfg.Warehouse.FactsDatabase),
			factsFailThreshold, factsOpenFor)
	}

	if needs.Events && len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.EventTopic != "" {
		a.Events = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
	}
	return nil
}

func poolOpts(c config.DatabaseConfig) db.PoolOpts {
	return db.PoolOpts{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

// Options maps the configuration onto the pipeline tunables.
func Options(cfg config.Config) pipeline.Options {
	o := pipeline.DefaultOptions()
	o.DataDir = cfg.Data.Dir
	o.QueriesDir = cfg.Data.QueriesDir
	if cfg.Warehouse.User != "" {
		o.User = cfg.Warehouse.User
	}
	o.OutlierThreshold = cfg.Outlier.Threshold
	o.PeriodDays = cfg.Churn.PeriodDays
	o.Params = cfg.Churn.Params
	return o
}

// Env builds the pipeline environment. It needs the warehouse.
func (a *App) Env() (*pipeline.Env, error) {
	if a.MySQL == nil {
		return nil, errors.New("warehouse connection not opened")
	}
	return &pipeline.Env{
		Warehouse: repository.NewWarehouse(a.MySQL, a.Cfg.Warehouse.InsertBatchSize),
		Store:     a.Store,
		Facts:     a.Facts,
		Log:       logger.Log,
		Opts:      Options(a.Cfg),
	}, nil
}

// Firms is the tenant registry in the admin schema.
func (a *App) Firms() *repository.FirmsRepositoryImpl {
	return repository.NewFirmsRepository(a.MySQL, a.Cfg.Warehouse.AdminSchema)
}

// Runner builds a runner that logs to STG_LOGS and publishes job events
// when a publisher is open.
func (a *App) Runner() (*pipeline.Runner, error) {
	env, err := a.Env()
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(env, a.Firms(), repository.NewJobLogRepository(a.MySQL, a.Cfg.Warehouse.AdminSchema))
	if a.Events != nil {
		r.Events = a.Events
	}
	return r, nil
}

// Close releases everything Open connected.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.ClickHouse != nil {
		errs = append(errs, a.ClickHouse.Close())
	}
	if a.MySQL != nil {
		errs = append(errs, a.MySQL.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Log.Warn("close failed", zap.Error(err))
		return err
	}
	return nil
}
