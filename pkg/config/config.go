package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "MERCADERO"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "MERCADERO_DB_DSN"
	EnvDBHost = "MERCADERO_DB_HOST"
	EnvDBUser = "MERCADERO_DB_USER"
	EnvDBName = "MERCADERO_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Stream   StreamConfig
	Bidding  BiddingConfig
	Eventing EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCADERO_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCADERO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MERCADERO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCADERO_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"MERCADERO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MERCADERO_DB_DSN"`
	Driver string `envconfig:"MERCADERO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MERCADERO_DB_HOST"`
	Port     int    `envconfig:"MERCADERO_DB_PORT" default:"5432"`
	User     string `envconfig:"MERCADERO_DB_USER"`
	Password string `envconfig:"MERCADERO_DB_PASSWORD"`
	Name     string `envconfig:"MERCADERO_DB_NAME"`
	SSLMode  string `envconfig:"MERCADERO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCADERO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCADERO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCADERO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCADERO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCADERO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERCADERO_REDIS_ADDR"`
	Password     string        `envconfig:"MERCADERO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCADERO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCADERO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCADERO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCADERO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCADERO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCADERO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MERCADERO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MERCADERO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MERCADERO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MERCADERO_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	ListingsTopic        string `envconfig:"MERCADERO_PUBSUB_LISTINGS_TOPIC" default:"mercadero-listing-events"`
	ListingsSubscription string `envconfig:"MERCADERO_PUBSUB_LISTINGS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MERCADERO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MERCADERO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MERCADERO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// StreamConfig tunes the live room stream fan-out.
type StreamConfig struct {
	SendBuffer    int           `envconfig:"MERCADERO_STREAM_SEND_BUFFER" default:"16"`
	WriteTimeout  time.Duration `envconfig:"MERCADERO_STREAM_WRITE_TIMEOUT" default:"10s"`
	PingInterval  time.Duration `envconfig:"MERCADERO_STREAM_PING_INTERVAL" default:"30s"`
	MaxMessageLen int64         `envconfig:"MERCADERO_STREAM_MAX_MESSAGE_LEN" default:"512"`
}

// BiddingConfig throttles bid submissions per user.
type BiddingConfig struct {
	RateLimitWindow time.Duration `envconfig:"MERCADERO_BID_RATE_LIMIT_WINDOW" default:"1s"`
	RateLimitCount  int           `envconfig:"MERCADERO_BID_RATE_LIMIT_COUNT" default:"5"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MERCADERO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
