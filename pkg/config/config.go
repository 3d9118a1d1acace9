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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cloudinary    CloudinaryConfig
	Sendgrid      SendgridConfig
	Stripe        StripeConfig
	Razorpay      RazorpayConfig
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
	Env            string        `envconfig:"EMBERCART_APP_ENV" required:"true"`
	Port           string        `envconfig:"EMBERCART_APP_PORT" required:"true"`
	BaseURL        string        `envconfig:"EMBERCART_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel       string        `envconfig:"EMBERCART_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"EMBERCART_LOG_WARN_STACK" default:"false"`
	RequestTimeout time.Duration `envconfig:"EMBERCART_REQUEST_TIMEOUT" default:"30s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EMBERCART_DB_DSN"`
	Driver string `envconfig:"EMBERCART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"EMBERCART_DB_HOST"`
	Port     int    `envconfig:"EMBERCART_DB_PORT" default:"5432"`
	User     string `envconfig:"EMBERCART_DB_USER"`
	Password string `envconfig:"EMBERCART_DB_PASSWORD"`
	Name     string `envconfig:"EMBERCART_DB_NAME"`
	SSLMode  string `envconfig:"EMBERCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EMBERCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EMBERCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EMBERCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EMBERCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EMBERCART_REDIS_URL"`
	Address      string        `envconfig:"EMBERCART_REDIS_ADDR"`
	Password     string        `envconfig:"EMBERCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"EMBERCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EMBERCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EMBERCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EMBERCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EMBERCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EMBERCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EMBERCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EMBERCART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EMBERCART_JWT_EXPIRATION_MINUTES" default:"4320"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EMBERCART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EMBERCART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EMBERCART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EMBERCART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EMBERCART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"EMBERCART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"EMBERCART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"EMBERCART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"EMBERCART_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"EMBERCART_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"EMBERCART_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EMBERCART_AUTO_MIGRATE" default:"false"`
}

type CloudinaryConfig struct {
	URL           string `envconfig:"EMBERCART_CLOUDINARY_URL"`
	ProfileFolder string `envconfig:"EMBERCART_CLOUDINARY_PROFILE_FOLDER" default:"embercart/users"`
	ProductFolder string `envconfig:"EMBERCART_CLOUDINARY_PRODUCT_FOLDER" default:"embercart/products"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"EMBERCART_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"EMBERCART_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"EMBERCART_SENDGRID_FROM_NAME" default:"Embercart"`
}

type StripeConfig struct {
	APIKey string `envconfig:"EMBERCART_STRIPE_API_KEY"`
	Env    string `envconfig:"EMBERCART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"EMBERCART_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"EMBERCART_RAZORPAY_KEY_SECRET"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"EMBERCART_DB_HOST": db.Host,
		"EMBERCART_DB_USER": db.User,
		"EMBERCART_DB_NAME": db.Name,
	}
	for _, key := range []string{"EMBERCART_DB_HOST", "EMBERCART_DB_USER", "EMBERCART_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either EMBERCART_DB_DSN or %s are required", strings.Join(missing, ", "))
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
