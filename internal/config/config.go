package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Servers   []ServerConfig
	Scheduler SchedulerConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Auth      AuthConfig
	LogLevel  string
}

// ServerConfig describes one NNTP server the scheduler may draw
// connections from.
type ServerConfig struct {
	ID             string
	Host           string
	Port           int
	TLS            bool
	Username       string
	Password       string
	MaxConnections int
}

// SchedulerConfig tunes the Queue's periodic upkeep loop and the
// connection pools it drives.
type SchedulerConfig struct {
	UpkeepInterval    time.Duration
	SaveDebounce      time.Duration
	IdleConnTimeout   time.Duration
	DialTimeout       time.Duration
	DialWorkerPoolMax int
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPS int
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/nntpqueue")

	// Set defaults
	setDefaults()

	// Environment variable binding
	viper.SetEnvPrefix("NNTPQUEUE")
	viper.AutomaticEnv()

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Server pool defaults: a single unconfigured server, overridden by
	// a real config file in any non-trivial deployment.
	viper.SetDefault("servers", []map[string]interface{}{
		{
			"id":             "default",
			"host":           "localhost",
			"port":           119,
			"tls":            false,
			"maxconnections": 4,
		},
	})

	// Scheduler defaults
	viper.SetDefault("scheduler.upkeepinterval", 1*time.Second)
	viper.SetDefault("scheduler.savedebounce", 10*time.Second)
	viper.SetDefault("scheduler.idleconntimeout", 90*time.Second)
	viper.SetDefault("scheduler.dialtimeout", 30*time.Second)
	viper.SetDefault("scheduler.dialworkerpoolmax", 8)

	// HTTP defaults
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.readtimeout", 30*time.Second)
	viper.SetDefault("http.writetimeout", 30*time.Second)
	viper.SetDefault("http.idletimeout", 120*time.Second)
	viper.SetDefault("http.ratelimitrps", 50)

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolsize", 100)
	viper.SetDefault("redis.minidleconns", 10)
	viper.SetDefault("redis.maxretries", 3)
	viper.SetDefault("redis.dialtimeout", 5*time.Second)
	viper.SetDefault("redis.readtimeout", 3*time.Second)
	viper.SetDefault("redis.writetimeout", 3*time.Second)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.apikeys", []string{})

	// Logging defaults
	viper.SetDefault("loglevel", "info")
}
