package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	Checkout     CheckoutConfig
	Uploads      UploadsConfig
	Seed         SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.FeatureFlags.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UsesMongo() && strings.TrimSpace(cfg.Mongo.URI) == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvOrderStore, OrderStoreMongo)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKERY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAKERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAKERY_LOG_WARN_STACK" default:"false"`
	ClientURL    string `envconfig:"BAKERY_CLIENT_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins returns the comma separated client origins permitted by CORS.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.ClientURL, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"BAKERY_DB_DSN"`
	Driver string `envconfig:"BAKERY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAKERY_DB_HOST"`
	LegacyPort     int    `envconfig:"BAKERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAKERY_DB_USER"`
	LegacyPassword string `envconfig:"BAKERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAKERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAKERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"BAKERY_DB_SLOW_QUERY" default:"200ms"`
}

type MongoConfig struct {
	URI            string        `envconfig:"BAKERY_MONGO_URI"`
	Database       string        `envconfig:"BAKERY_MONGO_DATABASE" default:"bakery"`
	ConnectTimeout time.Duration `envconfig:"BAKERY_MONGO_CONNECT_TIMEOUT" default:"10s"`
	MaxPoolSize    uint64        `envconfig:"BAKERY_MONGO_MAX_POOL_SIZE" default:"20"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAKERY_REDIS_ADDR"`
	Password     string        `envconfig:"BAKERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAKERY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAKERY_JWT_ISSUER" default:"bakery"`
	ExpirationMinutes      int    `envconfig:"BAKERY_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int    `envconfig:"BAKERY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAKERY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAKERY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAKERY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAKERY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAKERY_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig throttles credential guessing and card testing. A zero
// window disables the policy.
type RateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BAKERY_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BAKERY_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BAKERY_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BAKERY_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BAKERY_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BAKERY_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PaymentWindow      time.Duration `envconfig:"BAKERY_RATE_LIMIT_PAYMENT_WINDOW" default:"10m"`
	PaymentUserLimit   int           `envconfig:"BAKERY_RATE_LIMIT_PAYMENT_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"BAKERY_USE_SQLITE" default:"false"`
	AutoMigrate bool   `envconfig:"BAKERY_AUTO_MIGRATE" default:"false"`
	OrderStore  string `envconfig:"BAKERY_ORDER_STORE" default:"sql"`
}

// UsesMongo reports whether orders are persisted in the document store.
func (f FeatureFlagsConfig) UsesMongo() bool {
	return strings.EqualFold(strings.TrimSpace(f.OrderStore), OrderStoreMongo)
}

func (f FeatureFlagsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.OrderStore)) {
	case OrderStoreSQL, OrderStoreMongo:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvOrderStore, OrderStoreSQL, OrderStoreMongo, f.OrderStore)
	}
}

type SquareConfig struct {
	AccessToken   string `envconfig:"BAKERY_SQUARE_ACCESS_TOKEN" required:"true"`
	ApplicationID string `envconfig:"BAKERY_SQUARE_APPLICATION_ID" required:"true"`
	LocationID    string `envconfig:"BAKERY_SQUARE_LOCATION_ID" required:"true"`
	Env           string `envconfig:"BAKERY_SQUARE_ENV" default:"sandbox"`
	Currency      string `envconfig:"BAKERY_SQUARE_CURRENCY" default:"USD"`
	BaseURL       string `envconfig:"BAKERY_SQUARE_BASE_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	StoreTimezone  string        `envconfig:"BAKERY_STORE_TIMEZONE" default:"America/Los_Angeles"`
	ChargeTimeout  time.Duration `envconfig:"BAKERY_CHARGE_TIMEOUT" default:"30s"`
	IdempotencyTTL time.Duration `envconfig:"BAKERY_IDEMPOTENCY_TTL" default:"24h"`
}

// Location resolves the store timezone, falling back to UTC when it is unknown.
func (c CheckoutConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.StoreTimezone))
	if err != nil || c.StoreTimezone == "" {
		return time.UTC
	}
	return loc
}

type UploadsConfig struct {
	Dir         string `envconfig:"BAKERY_UPLOADS_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"BAKERY_MAX_UPLOAD_MB" default:"5"`
}

// MaxUploadBytes returns the upload size ceiling in bytes.
func (u UploadsConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(u.MaxUploadMB) << 20
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"BAKERY_SEED_ADMIN_EMAIL" default:"admin@bakery.local"`
	AdminPassword string `envconfig:"BAKERY_SEED_ADMIN_PASSWORD"`
	AdminName     string `envconfig:"BAKERY_SEED_ADMIN_NAME" default:"Bakery Admin"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
