package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Worker   WorkerConfig
	Sweeper  SweeperConfig
	Metrics  MetricsConfig
	Auth     AuthConfig
	LogLevel string
}

type ServerConfig struct {
	Host         string
	Port         int
	AdminPort    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type WorkerConfig struct {
	ID                string
	BaseURL           string
	QueueName         string
	QueuePassword     string
	Concurrency       int
	HeartbeatInterval time.Duration
	ShutdownTimeout   time.Duration
}

// SweeperConfig controls the timeout sweeper's poll interval and the API
// rate limit. DefaultHeartbeatTimeout, DefaultTaskTimeout,
// DefaultMaxRetries and MaxQueueSize are loaded but not read by any
// service: a submitted task takes its defaults from task.New (no heartbeat
// or task timeout, 3 max retries), and queue size is not capped.
type SweeperConfig struct {
	PollInterval            time.Duration
	DefaultHeartbeatTimeout int
	DefaultTaskTimeout      int
	DefaultMaxRetries       int
	MaxQueueSize            int64
	RateLimitRPS            int
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
	viper.AddConfigPath("/etc/taskqueue")

	setDefaults()

	viper.SetEnvPrefix("TASKQUEUE")
	viper.AutomaticEnv()

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
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.adminport", 8081)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 30*time.Second)
	viper.SetDefault("server.idletimeout", 120*time.Second)

	// Mongo defaults
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "taskqueue")
	viper.SetDefault("mongo.connecttimeout", 10*time.Second)

	// Worker defaults
	viper.SetDefault("worker.id", "")
	viper.SetDefault("worker.baseurl", "http://localhost:8080")
	viper.SetDefault("worker.queuename", "")
	viper.SetDefault("worker.queuepassword", "")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.heartbeatinterval", 5*time.Second)
	viper.SetDefault("worker.shutdowntimeout", 30*time.Second)

	// Sweeper/queue defaults
	viper.SetDefault("sweeper.pollinterval", 10*time.Second)
	viper.SetDefault("sweeper.defaultheartbeattimeout", 60)
	viper.SetDefault("sweeper.defaulttasktimeout", 3600)
	viper.SetDefault("sweeper.defaultmaxretries", 3)
	viper.SetDefault("sweeper.maxqueuesize", 1000000)
	viper.SetDefault("sweeper.ratelimitrps", 1000)

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
