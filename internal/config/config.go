package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/weiawesome/wes-io-dorm/internal/realtime"
	pkgconfig "github.com/weiawesome/wes-io-dorm/pkg/config"
	"github.com/weiawesome/wes-io-dorm/pkg/database"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	JWT       JWTConfig
	Password  PasswordConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Events    pubsub.Config
	Seed      SeedConfig
	Log       log.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string      `mapstructure:"-"`
	ShutdownTimeout time.Duration `mapstructure:"-"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessDuration time.Duration `mapstructure:"-"`
}

type PasswordConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type WebSocketConfig struct {
	realtime.Config `mapstructure:",squash"`
	// EchoSender delivers a sender's own messages back to its socket.
	EchoSender bool `mapstructure:"echo_sender"`
}

type SeedConfig struct {
	Enabled       bool
	Password      string
	AdminPassword string `mapstructure:"admin_password"`
}

// Load reads ./config/config.yaml (if present) and the environment.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and env bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Durations go through the tolerant parser so bare integers and
	// malformed values fall back instead of decoding as nanoseconds.
	cfg.Server.AllowedOrigins = pkgconfig.Strings(v, "server.allowed_origins")
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 15*time.Second)
	cfg.JWT.AccessDuration = pkgconfig.Duration(v, "jwt.access_duration", 300*time.Minute)
	ws := realtime.DefaultConfig()
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", ws.PingInterval)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", ws.PongWait)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", ws.WriteWait)
	cfg.Events.Redis.ReadTimeout = pkgconfig.Duration(v, "events.redis.read_timeout", 3*time.Second)
	cfg.Events.Redis.WriteTimeout = pkgconfig.Duration(v, "events.redis.write_timeout", 3*time.Second)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be set")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "dorm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.file_path", "./data/dorm.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "wes-io-dorm")
	v.SetDefault("jwt.access_duration", "300m")

	v.SetDefault("password.bcrypt_cost", 10)

	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 16384)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.echo_sender", true)

	ev := pubsub.DefaultConfig()
	v.SetDefault("events.driver", ev.Driver)
	v.SetDefault("events.prefix", ev.Prefix)
	v.SetDefault("events.redis.address", ev.Redis.Address)
	v.SetDefault("events.redis.password", "")
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.redis.pool_size", ev.Redis.PoolSize)
	v.SetDefault("events.redis.read_timeout", "3s")
	v.SetDefault("events.redis.write_timeout", "3s")
	v.SetDefault("events.kafka.brokers", ev.Kafka.Brokers)
	v.SetDefault("events.kafka.topic", ev.Kafka.Topic)
	v.SetDefault("events.kafka.partitions", ev.Kafka.Partitions)

	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.password", "TestPassword123")
	v.SetDefault("seed.admin_password", "AdminPassword123")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "dorm-server")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("jwt.secret", "JWT_SECRET", "SECRET_KEY")
	v.BindEnv("jwt.access_duration", "JWT_ACCESS_DURATION")
	v.BindEnv("events.driver", "EVENTS_DRIVER")
	v.BindEnv("events.redis.address", "REDIS_ADDRESS")
	v.BindEnv("events.redis.password", "REDIS_PASSWORD")
	v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("seed.enabled", "SEED_ENABLED")
	v.BindEnv("log.level", "LOG_LEVEL")
}
