package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Orders       OrdersConfig
	RateLimit    RateLimitConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"TURISTA_APP_ENV" required:"true"`
	Port         string `envconfig:"TURISTA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TURISTA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TURISTA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TURISTA_DB_DSN"`
	Driver string `envconfig:"TURISTA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TURISTA_DB_HOST"`
	Port     int    `envconfig:"TURISTA_DB_PORT" default:"5432"`
	User     string `envconfig:"TURISTA_DB_USER"`
	Password string `envconfig:"TURISTA_DB_PASSWORD"`
	Name     string `envconfig:"TURISTA_DB_NAME"`
	SSLMode  string `envconfig:"TURISTA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TURISTA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TURISTA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TURISTA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TURISTA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TURISTA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TURISTA_REDIS_ADDR"`
	Password     string        `envconfig:"TURISTA_REDIS_PASSWORD"`
	DB           int           `envconfig:"TURISTA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TURISTA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TURISTA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TURISTA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TURISTA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TURISTA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TURISTA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TURISTA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TURISTA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// OrdersConfig tunes the transition engine and its side effects.
type OrdersConfig struct {
	CancelGrace     time.Duration `envconfig:"TURISTA_ORDER_CANCEL_GRACE" default:"10s"`
	RefundTimeout   time.Duration `envconfig:"TURISTA_REFUND_TIMEOUT" default:"10s"`
	DispatchTimeout time.Duration `envconfig:"TURISTA_DISPATCH_TIMEOUT" default:"3s"`
}

// RateLimitConfig throttles order mutations per authenticated user.
type RateLimitConfig struct {
	MutationLimit  int64         `envconfig:"TURISTA_RATE_LIMIT_MUTATIONS" default:"30"`
	MutationWindow time.Duration `envconfig:"TURISTA_RATE_LIMIT_WINDOW" default:"1m"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"TURISTA_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"TURISTA_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"TURISTA_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"TURISTA_SQUARE_CURRENCY" default:"PHP"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"TURISTA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderEventsTopic         string `envconfig:"TURISTA_PUBSUB_ORDER_EVENTS_TOPIC" default:"turista-order-events"`
	NotificationSubscription string `envconfig:"TURISTA_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"turista-order-events-notifications"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TURISTA_CRON_INTERVAL" default:"10m"`
	LockKey  string        `envconfig:"TURISTA_CRON_LOCK_KEY" default:"cron:leader"`
	LockTTL  time.Duration `envconfig:"TURISTA_CRON_LOCK_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TURISTA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := []struct {
		env   string
		value string
	}{
		{"TURISTA_DB_HOST", db.Host},
		{"TURISTA_DB_USER", db.User},
		{"TURISTA_DB_NAME", db.Name},
	}
	for _, item := range required {
		if item.value == "" {
			missing = append(missing, item.env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either TURISTA_DB_DSN or %s are required", strings.Join(missing, ", "))
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
