package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME" envDefault:"kamp"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"20"`
	MaxIdle  int    `env:"DB_MAX_IDLE" envDefault:"5"`
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// MQTTConfig MQTT 配置（EVENTS_SINK=mqtt 时使用）
type MQTTConfig struct {
	Broker      string `env:"MQTT_BROKER" envDefault:"tcp://localhost:1883"`
	ClientID    string `env:"MQTT_CLIENT_ID" envDefault:"kamp-api"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"kamp/occupancy"`
	QoS         byte   `env:"MQTT_QOS" envDefault:"1"`
}

type EventsConfig struct {
	Sink   string `env:"EVENTS_SINK" envDefault:"none"` // none | redis | mqtt
	Stream string `env:"EVENTS_STREAM" envDefault:"kamp:occupancy"`
}

type DirectoryConfig struct {
	Mode      string        `env:"DIRECTORY_MODE" envDefault:"header"` // header | jwt | remote
	JWTSecret string        `env:"DIRECTORY_JWT_SECRET"`
	JWTIssuer string        `env:"DIRECTORY_JWT_ISSUER"`
	URL       string        `env:"DIRECTORY_URL"`
	Timeout   time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"5s"`
}

// Config kamp-api（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
		ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
		WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
		IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	}
	// DB 不可用时回退到内存实现
	DBEnabled bool `env:"DB_ENABLED" envDefault:"true"`
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Events    EventsConfig
	Directory DirectoryConfig
	Log       struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"5m"`
	ImportMaxBytes int64         `env:"IMPORT_MAX_BYTES" envDefault:"10485760"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
