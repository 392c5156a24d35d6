package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (PIZZERIA_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (PIZZERIA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for pizza images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (PIZZERIA_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Order        OrderConfig
	Payment      PaymentConfig
	Notify       NotifyConfig
	Kafka        KafkaConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
}

// OrderConfig controls order placement policy.
type OrderConfig struct {
	OperatorEmail       string        `usage:"Recipient of new order and cancellation notices; empty disables them" flag:"operator-email"`
	DeliveryEstimate    time.Duration `default:"45m" usage:"Estimated delivery time after placement" flag:"delivery-estimate"`
	RejectTotalMismatch bool          `default:"false" usage:"Reject orders whose supplied total differs from the computed one" flag:"reject-total-mismatch"`
}

// PaymentConfig controls the demo payment processor.
type PaymentConfig struct {
	Delay       time.Duration `default:"1500ms" usage:"Simulated gateway latency; negative disables it"`
	FailureRate float64       `default:"0" usage:"Probability in [0, 1] that a demo charge is declined" flag:"payment-failure-rate"`
}

// NotifyConfig controls the asynchronous notification dispatcher.
type NotifyConfig struct {
	QueueSize   int           `default:"256" usage:"Pending notification buffer size" flag:"notify-queue-size"`
	Workers     int           `default:"2" usage:"Notification sender goroutines" flag:"notify-workers"`
	SendTimeout time.Duration `default:"10s" usage:"Timeout for one notification delivery" flag:"notify-send-timeout"`
}

// KafkaConfig selects the Kafka notification sink. Empty Brokers logs
// notifications instead.
type KafkaConfig struct {
	Brokers string `default:"" usage:"Comma-separated Kafka brokers for notifications" flag:"kafka-brokers"`
	Topic   string `default:"pizzeria.notifications" usage:"Kafka topic for notifications" flag:"kafka-topic"`
}

// RedisConfig enables the catalog cache. Empty Addr disables it.
type RedisConfig struct {
	Addr string        `default:"" usage:"Redis address for the catalog cache" flag:"redis-addr"`
	TTL  time.Duration `default:"5m" usage:"Catalog cache entry lifetime" flag:"redis-ttl"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "PIZZERIA",
		Files:     []string{"config.yaml", "/etc/pizzeria/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set PIZZERIA_DATABASE_URL or DATABASE_URL")
	}
	if c.Payment.FailureRate < 0 || c.Payment.FailureRate > 1 {
		return errors.Errorf("payment failure rate %v is outside [0, 1]", c.Payment.FailureRate)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's PIZZERIA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
