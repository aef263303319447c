package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Notifications NotificationsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.PubSub.NotificationsEnabled && strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%s is required when %s is set", EnvGCPProjectID, EnvPubSubNotificationsEnabled)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTMATE_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTMATE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENTMATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTMATE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RENTMATE_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"RENTMATE_CORS_ORIGINS"`

	ReadTimeout     time.Duration `envconfig:"RENTMATE_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"RENTMATE_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"RENTMATE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Name string `envconfig:"RENTMATE_SERVICE_NAME" default:"rentmate"`
	Kind string `envconfig:"RENTMATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTMATE_DB_DSN"`
	Driver string `envconfig:"RENTMATE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RENTMATE_DB_HOST"`
	Port     int    `envconfig:"RENTMATE_DB_PORT" default:"5432"`
	User     string `envconfig:"RENTMATE_DB_USER"`
	Password string `envconfig:"RENTMATE_DB_PASSWORD"`
	Name     string `envconfig:"RENTMATE_DB_NAME"`
	SSLMode  string `envconfig:"RENTMATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTMATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTMATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTMATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTMATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTMATE_REDIS_URL"`
	Address      string        `envconfig:"RENTMATE_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"RENTMATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTMATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTMATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTMATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTMATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTMATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTMATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"RENTMATE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"RENTMATE_JWT_ISSUER" required:"true"`
}

type RateLimitConfig struct {
	Window         time.Duration `envconfig:"RENTMATE_RATE_LIMIT_WINDOW" default:"1m"`
	WriteLimit     int           `envconfig:"RENTMATE_RATE_LIMIT_WRITE_LIMIT" default:"60"`
	IdempotencyTTL time.Duration `envconfig:"RENTMATE_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTMATE_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"RENTMATE_FEATURE_IDEMPOTENCY" default:"true"`
}

type NotificationsConfig struct {
	QueueSize       int           `envconfig:"RENTMATE_NOTIFICATIONS_QUEUE_SIZE" default:"1024"`
	Workers         int           `envconfig:"RENTMATE_NOTIFICATIONS_WORKERS" default:"4"`
	DeliveryTimeout time.Duration `envconfig:"RENTMATE_NOTIFICATIONS_DELIVERY_TIMEOUT" default:"5s"`
	ChannelPrefix   string        `envconfig:"RENTMATE_NOTIFICATIONS_CHANNEL_PREFIX" default:"notify"`
	RetentionDays   int           `envconfig:"RENTMATE_NOTIFICATIONS_RETENTION_DAYS" default:"30"`
	StreamHeartbeat time.Duration `envconfig:"RENTMATE_NOTIFICATIONS_STREAM_HEARTBEAT" default:"25s"`
}

// Retention returns the inbox retention window.
func (n NotificationsConfig) Retention() time.Duration {
	if n.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(n.RetentionDays) * 24 * time.Hour
}

type GCPConfig struct {
	ProjectID       string `envconfig:"RENTMATE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"RENTMATE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationsEnabled bool   `envconfig:"RENTMATE_PUBSUB_NOTIFICATIONS_ENABLED" default:"false"`
	NotificationTopic    string `envconfig:"RENTMATE_PUBSUB_NOTIFICATION_TOPIC" default:"rentmate-notifications"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RENTMATE_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"RENTMATE_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
