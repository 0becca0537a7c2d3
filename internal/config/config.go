package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	VAPIDPublicKey  string        `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `mapstructure:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string        `mapstructure:"VAPID_SUBSCRIBER"`
	PushTTL         int           `mapstructure:"PUSH_TTL"`
	PushTimeout     time.Duration `mapstructure:"PUSH_TIMEOUT"`
	PushConcurrency int           `mapstructure:"PUSH_CONCURRENCY"`
	NotifyWorkers   int           `mapstructure:"NOTIFY_WORKERS"`
	MQTTBrokerURL   string        `mapstructure:"MQTT_BROKER_URL"`
	MQTTTopic       string        `mapstructure:"MQTT_TOPIC"`
	MQTTClientID    string        `mapstructure:"MQTT_CLIENT_ID"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	RedisChannel    string        `mapstructure:"REDIS_CHANNEL"`
	MDNSEnabled     bool          `mapstructure:"MDNS_ENABLED"`
	MDNSInstance    string        `mapstructure:"MDNS_INSTANCE"`
}

var serverDefaults = map[string]interface{}{
	"PORT":             "3001",
	"ENV":              "development",
	"LOG_LEVEL":        "info",
	"DB_MAX_CONNS":     10,
	"DB_MIN_CONNS":     2,
	"CORS_ORIGINS":     "*",
	"RATE_LIMIT_RPS":   50,
	"RATE_LIMIT_BURST": 100,
	"VAPID_SUBSCRIBER": "mailto:admin@pharma-garde.com",
	"PUSH_TTL":         86400,
	"PUSH_TIMEOUT":     "10s",
	"PUSH_CONCURRENCY": 16,
	"NOTIFY_WORKERS":   4,
	"MQTT_TOPIC":       "garde/status",
	"MQTT_CLIENT_ID":   "garde-server",
	"REDIS_CHANNEL":    "establishment:status",
	"MDNS_ENABLED":     false,
	"MDNS_INSTANCE":    "Pharma Garde",
}

var serverKeys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_SUBSCRIBER",
	"PUSH_TTL", "PUSH_TIMEOUT", "PUSH_CONCURRENCY", "NOTIFY_WORKERS",
	"MQTT_BROKER_URL", "MQTT_TOPIC", "MQTT_CLIENT_ID",
	"REDIS_URL", "REDIS_CHANNEL",
	"MDNS_ENABLED", "MDNS_INSTANCE",
}

// newViper reads an optional .env file and the process environment.
func newViper(defaults map[string]interface{}, keys []string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is not an error
	_ = v.ReadInConfig()
	return v
}

// Load reads the server configuration. DATABASE_URL is mandatory.
func Load() (*Config, error) {
	v := newViper(serverDefaults, serverKeys)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PushEnabled reports whether VAPID keys are configured.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Validate checks that the configuration is safe to run. Outside
// development a JWT secret is required; VAPID keys come in pairs and are
// mandatory in production.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}

	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	if c.IsProduction() && !c.PushEnabled() {
		return fmt.Errorf("VAPID keys are required in production")
	}
	if c.PushEnabled() && !strings.HasPrefix(c.VAPIDSubscriber, "mailto:") && !strings.HasPrefix(c.VAPIDSubscriber, "https://") {
		return fmt.Errorf("VAPID_SUBSCRIBER must be a mailto: or https: URL, got %q", c.VAPIDSubscriber)
	}

	if c.PushConcurrency < 1 {
		return fmt.Errorf("PUSH_CONCURRENCY must be positive, got %d", c.PushConcurrency)
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", c.NotifyWorkers)
	}
	if c.MDNSEnabled && c.MDNSInstance == "" {
		return fmt.Errorf("MDNS_INSTANCE is required when MDNS_ENABLED is true")
	}
	return nil
}

// ClientConfig configures the garde command-line client.
type ClientConfig struct {
	APIURL    string        `mapstructure:"GARDE_API_URL"`
	CachePath string        `mapstructure:"GARDE_CACHE_PATH"`
	Timeout   time.Duration `mapstructure:"GARDE_TIMEOUT"`
	Token     string        `mapstructure:"GARDE_TOKEN"`
}

// LoadClient reads the client configuration.
func LoadClient() (*ClientConfig, error) {
	v := newViper(map[string]interface{}{
		"GARDE_API_URL":    "http://localhost:3001/api",
		"GARDE_CACHE_PATH": "data/garde-client.db",
		"GARDE_TIMEOUT":    "10s",
	}, []string{"GARDE_API_URL", "GARDE_CACHE_PATH", "GARDE_TIMEOUT", "GARDE_TOKEN"})

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("GARDE_API_URL is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("GARDE_TIMEOUT must be positive")
	}
	return cfg, nil
}
