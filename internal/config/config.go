package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"vpn-account-ledger/internal/domain/model"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // CORS is off when empty
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled is false when no SMTP host is configured; mails are then only logged.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type LedgerConfig struct {
	TrialPeriodHours int           `yaml:"trial_period_hours"`
	TrialPeriodMax   int           `yaml:"trial_period_max"`
	ReferralBonus    time.Duration `yaml:"referral_bonus"`
}

type NotifyConfig struct {
	Window   time.Duration `yaml:"window"`
	Cooldown time.Duration `yaml:"cooldown"`
	Cron     string        `yaml:"cron"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type SecurityConfig struct {
	AdminAPIKey string        `yaml:"admin_api_key"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	GiftCodeAttempts int           `yaml:"gift_code_attempts"`
	GiftCodeWindow   time.Duration `yaml:"gift_code_window"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Notify    NotifyConfig    `yaml:"notify"`
	Security  SecurityConfig  `yaml:"security"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates.
// Secrets may be overridden from the environment or a .env file.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file access.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets deployments keep credentials out of the YAML file.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		"LEDGER_DATABASE_URL":   &c.Database.URL,
		"LEDGER_REDIS_URL":      &c.Redis.URL,
		"LEDGER_REDIS_PASSWORD": &c.Redis.Password,
		"LEDGER_SMTP_PASSWORD":  &c.SMTP.Password,
		"LEDGER_ADMIN_API_KEY":  &c.Security.AdminAPIKey,
		"LEDGER_JWT_SECRET":     &c.Security.JWTSecret,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 10 * time.Second
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.User
	}
	if c.Ledger.TrialPeriodHours <= 0 {
		c.Ledger.TrialPeriodHours = 2
	}
	if c.Ledger.TrialPeriodMax < 0 {
		c.Ledger.TrialPeriodMax = 0
	}
	if c.Ledger.ReferralBonus <= 0 {
		c.Ledger.ReferralBonus = model.DefaultReferralBonus
	}
	if c.Notify.Window <= 0 {
		c.Notify.Window = model.DefaultNotifyWindow
	}
	if c.Notify.Cooldown <= 0 {
		c.Notify.Cooldown = model.DefaultNotifyCooldown
	}
	if c.Notify.Cron == "" {
		c.Notify.Cron = "@every 1h"
	}
	if c.Notify.LockTTL <= 0 {
		c.Notify.LockTTL = 10 * time.Minute
	}
	if c.Security.TokenTTL <= 0 {
		c.Security.TokenTTL = 30 * 24 * time.Hour
	}
	if c.RateLimit.GiftCodeAttempts <= 0 {
		c.RateLimit.GiftCodeAttempts = 10
	}
	if c.RateLimit.GiftCodeWindow <= 0 {
		c.RateLimit.GiftCodeWindow = time.Hour
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required")
	}
	if _, err := cron.ParseStandard(c.Notify.Cron); err != nil {
		return fmt.Errorf("notify.cron: %w", err)
	}
	return nil
}

// LedgerPolicy converts the ledger section into the policy passed to use cases.
func (c *Config) LedgerPolicy() model.LedgerPolicy {
	return model.LedgerPolicy{
		TrialPeriod:    time.Duration(c.Ledger.TrialPeriodHours) * time.Hour,
		TrialPeriodMax: c.Ledger.TrialPeriodMax,
		ReferralBonus:  c.Ledger.ReferralBonus,
	}
}

func (c *Config) NotifyPolicy() model.NotifyPolicy {
	return model.NotifyPolicy{Window: c.Notify.Window, Cooldown: c.Notify.Cooldown}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
