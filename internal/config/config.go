package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendLocal  = "local"
)

var (
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
	ErrUnknownLockBackend    = errors.New("unknown lock backend")
	ErrRedisRequired         = errors.New("redis lock backend requires redis storage")
)

type Config struct {
	LogLevel   string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string    `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Redis      Redis     `yaml:"redis"`
	Postgres   Postgres  `yaml:"postgres"`
	Storage    Storage   `yaml:"storage"`
	Lock       Lock      `yaml:"lock"`
	Room       Room      `yaml:"room"`
	Finalize   Finalize  `yaml:"finalize"`
	WebSocket  WebSocket `yaml:"websocket"`
	CORS       CORS      `yaml:"cors"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Postgres struct {
	// URL left empty selects the in-memory user directory.
	URL string `yaml:"url" env:"POSTGRES_URL" env-default:""`
}

type Storage struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"redis"`
}

type Lock struct {
	Backend       string        `yaml:"backend" env:"LOCK_BACKEND" env-default:"local"`
	TTL           time.Duration `yaml:"ttl" env:"LOCK_TTL" env-default:"5s"`
	RetryInterval time.Duration `yaml:"retry-interval" env:"LOCK_RETRY_INTERVAL" env-default:"25ms"`
}

type Room struct {
	OperationTimeout time.Duration `yaml:"operation-timeout" env:"ROOM_OPERATION_TIMEOUT" env-default:"5s"`
}

type Finalize struct {
	MaxRetry int    `yaml:"max-retry" env:"FINALIZE_MAX_RETRY" env-default:"10"`
	Queue    string `yaml:"queue" env:"FINALIZE_QUEUE" env-default:"stats"`
}

type WebSocket struct {
	SendBuffer   int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	PingInterval time.Duration `yaml:"ping-interval" env:"WS_PING_INTERVAL" env-default:"54s"`
	PongWait     time.Duration `yaml:"pong-wait" env:"WS_PONG_WAIT" env-default:"60s"`
}

type CORS struct {
	AllowedOrigin string `yaml:"allowed-origin" env:"CORS_ALLOWED_ORIGIN" env-default:"http://localhost:5173"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %w", err))
	}

	return config
}

// Validate - rejects backend combinations the application cannot wire.
func (that *Config) Validate() error {
	switch that.Storage.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, that.Storage.Backend)
	}

	switch that.Lock.Backend {
	case BackendLocal:
	case BackendRedis:
		if that.Storage.Backend != BackendRedis {
			return ErrRedisRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLockBackend, that.Lock.Backend)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
