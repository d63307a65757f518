package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string        `yaml:"log-level" env:"DAMAS_LOG_LEVEL" env-default:"info"`
	LogFormat      string        `yaml:"log-format" env:"DAMAS_LOG_FORMAT" env-default:"json"`
	HTTPPort       string        `yaml:"http-port" env:"DAMAS_HTTP_PORT" env-default:"9090"`
	SocketPort     string        `yaml:"socket-port" env:"DAMAS_WS_PORT" env-default:"9091"`
	Redis          Redis         `yaml:"redis"`
	Database       Database      `yaml:"database"`
	JWTSecretKey   string        `yaml:"jwt-secret-key" env:"DAMAS_JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token-ttl" env:"DAMAS_TOKEN_TTL" env-default:"24h"`
	Game           Game          `yaml:"game"`
	Webhook        Webhook       `yaml:"webhook"`
	MessagesDir    string        `yaml:"messages-dir" env:"DAMAS_MESSAGES_DIR"`
	AllowedOrigins []string      `yaml:"allowed-origins" env:"DAMAS_ALLOWED_ORIGINS" env-separator:","`
}

type Redis struct {
	Host string `yaml:"host" env:"DAMAS_REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"DAMAS_REDIS_PORT" env-default:"6379"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DAMAS_DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DAMAS_DB_DSN" env-default:"damas.db"`
}

type Game struct {
	// DefaultTimeLimit is the per-side budget in seconds for matches created without one.
	DefaultTimeLimit int `yaml:"default-time-limit" env:"DAMAS_DEFAULT_TIME_LIMIT" env-default:"600"`
	WinScore         int `yaml:"win-score" env:"DAMAS_WIN_SCORE" env-default:"10"`
}

type Webhook struct {
	URL     string        `yaml:"url" env:"DAMAS_WEBHOOK_URL"`
	Timeout time.Duration `yaml:"timeout" env:"DAMAS_WEBHOOK_TIMEOUT" env-default:"3s"`
}

// Load reads the yaml file at path, then applies env overrides and defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
