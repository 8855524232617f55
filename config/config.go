package config

import (
	"fmt"
	"time"

	"github.com/courierops/parcel-track-system/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		HTTP      HTTPConfig
		WebSocket WebSocketConfig
		Tracking  TrackingConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		RabbitMQ  RabbitMQConfig
		Auth      Auth
	}

	HTTPConfig struct {
		Host string `env:"HTTP_HOST" default:"0.0.0.0"`
		Port string `env:"HTTP_PORT" default:"5000"`
	}

	WebSocketConfig struct {
		AuthTimeout   time.Duration `env:"WEBSOCKET_AUTH_TIMEOUT" default:"10s"`
		AuthAttempts  int           `env:"WEBSOCKET_AUTH_ATTEMPTS" default:"3"`
		SendQueueSize int           `env:"WEBSOCKET_SEND_QUEUE_SIZE" default:"64"`
		PingInterval  time.Duration `env:"WEBSOCKET_PING_INTERVAL" default:"30s"`
		PongWait      time.Duration `env:"WEBSOCKET_PONG_WAIT" default:"75s"`
		WriteWait     time.Duration `env:"WEBSOCKET_WRITE_WAIT" default:"10s"`
	}

	TrackingConfig struct {
		// ThrottleInterval spaces persisted-and-broadcast samples per
		// (agent, parcel) pair; samples above the rate are coalesced.
		ThrottleInterval time.Duration `env:"TRACKING_THROTTLE_INTERVAL" default:"2s"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"courier_user"`
		Password string `env:"DATABASE_PASSWORD" default:"courier_pass"`
		Database string `env:"DATABASE_DATABASE" default:"courier_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RedisConfig struct {
		Host     string `env:"REDIS_HOST" default:"localhost"`
		Port     string `env:"REDIS_PORT" default:"6379"`
		Password string `env:"REDIS_PASSWORD" default:""`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	Auth struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}
)

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c RedisConfig) GetPassword() string {
	return c.Password
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
