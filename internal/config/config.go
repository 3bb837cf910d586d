package config

import (
	"bytes"
	_ "embed"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
	"github.com/jmehdipour/crm-analytics/internal/modelstore"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix prefixes every environment override, e.g. CRM_MYSQL_DSN.
const EnvPrefix = "CRM"

// ---- Root ----

type Config struct {
	Log        LogConfig         `mapstructure:"log"`
	MySQL      DatabaseConfig    `mapstructure:"mysql"`
	ClickHouse DatabaseConfig    `mapstructure:"clickhouse"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	RateLimit  RateLimitConfig   `mapstructure:"rate_limit"`
	Warehouse  WarehouseConfig   `mapstructure:"warehouse"`
	Data       DataConfig        `mapstructure:"data"`
	ModelStore modelstore.Config `mapstructure:"model_store"`
	Churn      ChurnConfig       `mapstructure:"churn"`
	Outlier    OutlierConfig     `mapstructure:"outlier"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// Enabled is false when no DSN is configured; ClickHouse is optional.
func (d DatabaseConfig) Enabled() bool { return strings.TrimSpace(d.DSN) != "" }

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	RequestTopic   string   `mapstructure:"request_topic"`
	EventTopic     string   `mapstructure:"event_topic"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type HTTPConfig struct {
	Addr    string   `mapstructure:"addr"`
	APIKeys []string `mapstructure:"api_keys"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type WarehouseConfig struct {
	AdminSchema     string `mapstructure:"admin_schema"`
	User            string `mapstructure:"user"`
	InsertBatchSize int    `mapstructure:"insert_batch_size"`
	FactsDatabase   string `mapstructure:"facts_database"` // ClickHouse database of the run facts
}

type DataConfig struct {
	Dir        string `mapstructure:"dir"`
	QueriesDir string `mapstructure:"queries_dir"`
}

type ChurnConfig struct {
	PeriodDays int         `mapstructure:"period_days"`
	Params     gbdt.Params `mapstructure:"params"`
}

type OutlierConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

// Load reads embedded defaults, merges user YAML (if provided), loads .env
// (if present) and applies env overrides (CRM_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !missing(err) {
			return Config{}, apperrors.Wrapf(apperrors.ConfigInvalid(err.Error()), "read %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, apperrors.Wrap(apperrors.ConfigInvalid(err.Error()), "read .env")
	}

	// env override (CRM_*), nested keys joined by "_"
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func missing(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Validate rejects settings no job can run with.
func (c Config) Validate() error {
	switch {
	case c.Warehouse.AdminSchema == "":
		return apperrors.ConfigInvalid("warehouse.admin_schema is required")
	case c.Warehouse.InsertBatchSize <= 0:
		return apperrors.ConfigInvalid("warehouse.insert_batch_size must be positive")
	case c.Data.Dir == "":
		return apperrors.ConfigInvalid("data.dir is required")
	case c.Outlier.Threshold <= 0 || c.Outlier.Threshold >= 1:
		return apperrors.ConfigInvalid("outlier.threshold must be in (0,1)")
	case c.Churn.PeriodDays <= 0:
		return apperrors.ConfigInvalid("churn.period_days must be positive")
	}
	switch c.ModelStore.Backend {
	case "file":
		if c.ModelStore.Dir == "" {
			return apperrors.ConfigInvalid("model_store.dir is required for the file backend")
		}
	case "redis":
		if !c.Redis.Enabled() {
			return apperrors.ConfigInvalid("model_store.backend redis needs redis.addr")
		}
	default:
		return apperrors.ConfigInvalid("model_store.backend must be file or redis")
	}
	return nil
}
