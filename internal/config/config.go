package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var ErrMissingJWTSecret = errors.New("no JWT_SECRET provided")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Owner    OwnerConfig    `mapstructure:"owner"`
	Bitcoin  BitcoinConfig  `mapstructure:"bitcoin"`
	Rates    RatesConfig    `mapstructure:"rates"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	FrontendURL     string        `mapstructure:"frontend_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver           string `mapstructure:"driver"`
	Path             string `mapstructure:"path"`
	ConnectionString string `mapstructure:"connection_string"`
}

type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	OwnerTokenTTL     time.Duration `mapstructure:"owner_token_ttl"`
	AllowRegistration bool          `mapstructure:"allow_registration"`
	AutoLogin         bool          `mapstructure:"auto_login"`
	ExposeResetToken  bool          `mapstructure:"expose_reset_token"`
}

type OwnerConfig struct {
	Email     string `mapstructure:"email"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
	Currency  string `mapstructure:"currency"`
}

type BitcoinConfig struct {
	APIURL           string        `mapstructure:"api_url"`
	APIKey           string        `mapstructure:"api_key"`
	DirectCurrencies []string      `mapstructure:"direct_currencies"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RefreshSchedule  string        `mapstructure:"refresh_schedule"`
}

type RatesConfig struct {
	APIURL          string        `mapstructure:"api_url"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// environment variable names, kept compatible with the existing .env files
var envBindings = map[string]string{
	"server.port":                "PORT",
	"server.frontend_url":        "FRONTEND_URL",
	"server.shutdown_timeout":    "SHUTDOWN_TIMEOUT",
	"database.driver":            "DB_DRIVER",
	"database.path":              "DB_PATH",
	"database.connection_string": "DB_CONNECTION_STRING",
	"auth.jwt_secret":            "JWT_SECRET",
	"auth.token_ttl":             "TOKEN_TTL",
	"auth.owner_token_ttl":       "OWNER_TOKEN_TTL",
	"auth.allow_registration":    "ALLOW_REGISTRATION",
	"auth.auto_login":            "AUTO_LOGIN",
	"auth.expose_reset_token":    "EXPOSE_RESET_TOKEN",
	"owner.email":                "OWNER_EMAIL",
	"owner.first_name":           "OWNER_FIRST_NAME",
	"owner.last_name":            "OWNER_LAST_NAME",
	"owner.currency":             "OWNER_CURRENCY",
	"bitcoin.api_url":            "COINGECKO_API_URL",
	"bitcoin.api_key":            "COINGECKO_API_KEY",
	"bitcoin.direct_currencies":  "BITCOIN_DIRECT_CURRENCIES",
	"bitcoin.timeout":            "BITCOIN_API_TIMEOUT",
	"bitcoin.refresh_schedule":   "BITCOIN_REFRESH_SCHEDULE",
	"rates.api_url":              "EXCHANGE_RATE_API_URL",
	"rates.ttl":                  "EXCHANGE_RATE_TTL",
	"rates.refresh_schedule":     "EXCHANGE_RATE_REFRESH_SCHEDULE",
	"smtp.host":                  "SMTP_HOST",
	"smtp.port":                  "SMTP_PORT",
	"smtp.username":              "SMTP_USERNAME",
	"smtp.password":              "SMTP_PASSWORD",
	"smtp.from":                  "SMTP_FROM",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "database.sqlite")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.owner_token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.allow_registration", false)
	v.SetDefault("auth.auto_login", false)
	v.SetDefault("auth.expose_reset_token", false)
	v.SetDefault("owner.email", "owner@expense-tracker.local")
	v.SetDefault("owner.first_name", "Default")
	v.SetDefault("owner.last_name", "User")
	v.SetDefault("owner.currency", "USD")
	v.SetDefault("bitcoin.api_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("bitcoin.direct_currencies", []string{"USD", "EUR"})
	v.SetDefault("bitcoin.timeout", 10*time.Second)
	v.SetDefault("bitcoin.refresh_schedule", "@every 30m")
	v.SetDefault("rates.api_url", "https://api.exchangerate-api.com/v4/latest/USD")
	v.SetDefault("rates.ttl", time.Hour)
	v.SetDefault("rates.refresh_schedule", "@every 1h")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads .env (when present), the optional config file and the
// environment, in increasing order of precedence.
func Load(configPaths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded, continuing with system environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}
	if len(configPaths) == 0 {
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Owner.Currency = strings.ToUpper(strings.TrimSpace(c.Owner.Currency))

	// comma separated lists arrive as a single element from the environment
	var direct []string
	for _, entry := range c.Bitcoin.DirectCurrencies {
		for _, code := range strings.Split(entry, ",") {
			if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
				direct = append(direct, code)
			}
		}
	}
	c.Bitcoin.DirectCurrencies = direct
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.ConnectionString == "" {
			return errors.New("DB_CONNECTION_STRING is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// ConfigureLogging applies the log level and format to the standard logrus
// logger.
func ConfigureLogging(cfg LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
