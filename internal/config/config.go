package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLExpiry       time.Duration
}

type BackendConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type ReservationConfig struct {
	DueDay       int
	MortgageRate decimal.Decimal
	SessionTTL   time.Duration
	// SubmitStaleAfter is how long a stored submitting state blocks a retry.
	SubmitStaleAfter time.Duration
	// SessionStore is "memory" or "redis".
	SessionStore string
}

type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver       string
	LocalDir     string
	PublicPrefix string
	BaseURL      string
	Retention    time.Duration
}

type PDFConfig struct {
	Enabled   bool
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
}

type AppConfig struct {
	Port        string
	Log         logger.Config
	Backend     BackendConfig
	Reservation ReservationConfig
	Executor    contract.Executor
	Storage     StorageConfig
	PDF         PDFConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	S3          S3Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8010")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("backend.base_url", "https://ahlanapi.pythonanywhere.com")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.requests_per_second", 10)
	v.SetDefault("backend.burst", 5)

	v.SetDefault("reservation.due_day", 1)
	v.SetDefault("reservation.mortgage_rate", "0")
	v.SetDefault("reservation.session_ttl", "2h")
	v.SetDefault("reservation.submit_stale_after", "2m")
	v.SetDefault("reservation.session_store", "memory")

	v.SetDefault("executor.name", "AHLAN INVEST MCHJ")
	v.SetDefault("executor.director", "")
	v.SetDefault("executor.address", "")
	v.SetDefault("executor.phone", "")
	v.SetDefault("executor.account", "")
	v.SetDefault("executor.bank", "")
	v.SetDefault("executor.mfo", "")
	v.SetDefault("executor.tin", "")
	v.SetDefault("executor.city", "Toshkent")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./storage/contracts")
	v.SetDefault("storage.public_prefix", "/files")
	v.SetDefault("storage.base_url", "")
	v.SetDefault("storage.retention", "24h")

	v.SetDefault("pdf.enabled", false)
	v.SetDefault("pdf.remote_url", "")
	v.SetDefault("pdf.timeout", "30s")
	v.SetDefault("pdf.no_sandbox", false)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "127.0.0.1")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "root")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "ahlan")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 5)
	v.SetDefault("redis.dial_timeout", 10)
	v.SetDefault("redis.timeout", 5)
	v.SetDefault("redis.prefix", "ahlan_reserve")

	v.SetDefault("s3.endpoint", "localhost:9000")
	v.SetDefault("s3.access_key", "minio")
	v.SetDefault("s3.secret_key", "minio123")
	v.SetDefault("s3.bucket", "contracts")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.url_expiry", "24h")
}

// Load reads config.toml when present and lets AHLAN_* environment variables
// override it, e.g. AHLAN_BACKEND_BASE_URL or AHLAN_STORAGE_DRIVER.
func Load() (AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("AHLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (AppConfig, error) {
	mortgageRate, err := decimal.NewFromString(v.GetString("reservation.mortgage_rate"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("reservation.mortgage_rate: %w", err)
	}

	cfg := AppConfig{
		Port: v.GetString("app.port"),
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Backend: BackendConfig{
			BaseURL:           v.GetString("backend.base_url"),
			Timeout:           v.GetDuration("backend.timeout"),
			RequestsPerSecond: v.GetFloat64("backend.requests_per_second"),
			Burst:             v.GetInt("backend.burst"),
		},
		Reservation: ReservationConfig{
			DueDay:           v.GetInt("reservation.due_day"),
			MortgageRate:     mortgageRate,
			SessionTTL:       v.GetDuration("reservation.session_ttl"),
			SubmitStaleAfter: v.GetDuration("reservation.submit_stale_after"),
			SessionStore:     strings.ToLower(v.GetString("reservation.session_store")),
		},
		Executor: contract.Executor{
			Name:     v.GetString("executor.name"),
			Director: v.GetString("executor.director"),
			Address:  v.GetString("executor.address"),
			Phone:    v.GetString("executor.phone"),
			Account:  v.GetString("executor.account"),
			Bank:     v.GetString("executor.bank"),
			MFO:      v.GetString("executor.mfo"),
			TIN:      v.GetString("executor.tin"),
			City:     v.GetString("executor.city"),
		},
		Storage: StorageConfig{
			Driver:       strings.ToLower(v.GetString("storage.driver")),
			LocalDir:     v.GetString("storage.local_dir"),
			PublicPrefix: v.GetString("storage.public_prefix"),
			BaseURL:      v.GetString("storage.base_url"),
			Retention:    v.GetDuration("storage.retention"),
		},
		PDF: PDFConfig{
			Enabled:   v.GetBool("pdf.enabled"),
			RemoteURL: v.GetString("pdf.remote_url"),
			Timeout:   v.GetDuration("pdf.timeout"),
			NoSandbox: v.GetBool("pdf.no_sandbox"),
		},
		Postgres: PostgresConfig{
			Enabled:  v.GetBool("postgres.enabled"),
			Host:     v.GetString("postgres.host"),
			Port:     v.GetInt("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			DBName:   v.GetString("postgres.dbname"),
			SSLMode:  v.GetString("postgres.sslmode"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("redis.addr"),
			Password:    v.GetString("redis.password"),
			DB:          v.GetInt("redis.db"),
			MaxRetries:  v.GetInt("redis.max_retries"),
			DialTimeout: v.GetInt("redis.dial_timeout"),
			Timeout:     v.GetInt("redis.timeout"),
			Prefix:      v.GetString("redis.prefix"),
		},
		S3: S3Config{
			Endpoint:        v.GetString("s3.endpoint"),
			AccessKeyID:     v.GetString("s3.access_key"),
			SecretAccessKey: v.GetString("s3.secret_key"),
			Bucket:          v.GetString("s3.bucket"),
			UseSSL:          v.GetBool("s3.use_ssl"),
			Region:          v.GetString("s3.region"),
			Prefix:          v.GetString("s3.prefix"),
			URLExpiry:       v.GetDuration("s3.url_expiry"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	var errs []error
	if c.Reservation.DueDay < 1 || c.Reservation.DueDay > 31 {
		errs = append(errs, fmt.Errorf("reservation.due_day must be 1..31, got %d", c.Reservation.DueDay))
	}
	if c.Reservation.MortgageRate.IsNegative() {
		errs = append(errs, errors.New("reservation.mortgage_rate must not be negative"))
	}
	switch c.Reservation.SessionStore {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("reservation.session_store must be memory or redis, got %q", c.Reservation.SessionStore))
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be local or s3, got %q", c.Storage.Driver))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// DSN is the pgx connection string for the journal database.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}
