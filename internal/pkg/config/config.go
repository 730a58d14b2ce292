package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

// Config is the typed application configuration. Values come from the
// process environment after env.SetupEnvFile has merged the .env file.
type Config struct {
	App      AppConfig
	DB       DBConfig     `envPrefix:"DB_"`
	Cache    CacheConfig  `envPrefix:"CACHE_"`
	Stripe   StripeConfig `envPrefix:"STRIPE_"`
	Mail     MailConfig
	S3       S3Config `envPrefix:"S3_"`
	Jobs     JobsConfig
	HCaptcha HCaptchaConfig `envPrefix:"HCAPTCHA_"`
}

type AppConfig struct {
	Env           string `env:"APP_ENV" envDefault:"prod"`
	Host          string `env:"APP_HOST" envDefault:"localhost"`
	Port          string `env:"APP_PORT" envDefault:"4000"`
	SiteURL       string `env:"SITE_URL" envDefault:"http://localhost:4000"`
	OperatorEmail string `env:"OPERATOR_EMAIL" envDefault:"info@localhost"`
	CronSecret    string `env:"CRON_SECRET"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	CompanyName   string `env:"COMPANY_NAME" envDefault:"AgencyDesk Webdesign"`
}

type DBConfig struct {
	Driver   string `env:"DRIVER" envDefault:"mysql"`
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

type CacheConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
}

type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"eur"`
}

type MailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	PostmarkStream       string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
	SenderEmail          string `env:"MAIL_SENDER" envDefault:"no-reply@localhost"`
	SMTPHost             string `env:"SMTP_HOST"`
	SMTPPort             string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername         string `env:"SMTP_USERNAME"`
	SMTPPassword         string `env:"SMTP_PASSWORD"`
}

type S3Config struct {
	Enabled         bool   `env:"ARCHIVE_ENABLED" envDefault:"false"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Region          string `env:"REGION" envDefault:"eu-central-1"`
	BucketName      string `env:"BUCKET_NAME"`
	EndpointURL     string `env:"ENDPOINT_URL"`
}

type JobsConfig struct {
	Workers           int           `env:"JOB_WORKERS" envDefault:"3"`
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 15m"`
	RemoteTimeout     time.Duration `env:"REMOTE_TIMEOUT" envDefault:"15s"`
}

type HCaptchaConfig struct {
	Secret  string `env:"SECRET"`
	SiteKey string `env:"SITE_KEY"`
}

var (
	loaded  *Config
	loadMu  sync.Mutex
	loadErr error
)

// Load parses the environment once and caches the result.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	if loaded != nil || loadErr != nil {
		return loaded, loadErr
	}
	cfg, err := Parse()
	if err != nil {
		loadErr = err
		return nil, err
	}
	loaded = cfg
	return loaded, nil
}

// MustLoad is Load for entry points.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parse reads a fresh Config from the environment without caching.
func Parse() (*Config, error) {
	var cfg Config
	if err := cenv.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Reset drops the cached config. Tests only.
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	loaded = nil
	loadErr = nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.S3.Enabled && (c.S3.BucketName == "" || c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3_BUCKET_NAME, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when S3_ARCHIVE_ENABLED=true")
	}
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 3
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

// PaymentsEnabled reports whether a Stripe secret key is configured.
func (c *Config) PaymentsEnabled() bool {
	return strings.TrimSpace(c.Stripe.SecretKey) != ""
}

// DBPort returns the configured port or the driver default.
func (c DBConfig) DBPort() string {
	if c.Port != "" {
		return c.Port
	}
	if strings.ToLower(c.Driver) == "postgres" {
		return "5432"
	}
	return "3306"
}
