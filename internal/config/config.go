// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string          `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	JWTToken                JWTToken        `yaml:"jwttoken"`
	RedisConnection         RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	Blob                    Blob            `yaml:"blob"`
	Password                Password        `yaml:"password"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает отзыв токенов при выходе.
type RedisConnection struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	SecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"hobbies"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Blob настройки хранения загруженных файлов.
// Пустой S3.Endpoint оставляет файлы на локальном диске в Dir.
type Blob struct {
	Dir       string `yaml:"dir" env-default:"./uploads"`
	PublicURL string `yaml:"public_url" env-default:"/static"`
	MaxSize   int64  `yaml:"max_size" env-default:"5242880"`
	S3        S3     `yaml:"s3"`
}

// S3 подключение к S3-совместимому хранилищу объектов.
type S3 struct {
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey    string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey    string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Region       string `yaml:"region" env-default:"us-east-1"`
	UseSSL       bool   `yaml:"use_ssl" env:"S3_USE_SSL"`
	BucketPrefix string `yaml:"bucket_prefix"`
	// PublicURL адрес, с которого раздаются объекты. По умолчанию сам Endpoint.
	PublicURL string `yaml:"public_url"`
}

// Password настройки хэширования паролей.
type Password struct {
	Cost int `yaml:"cost" env-default:"10"`
}

// RateLimit настройки ограничения частоты запросов.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"10"`
	Burst int     `yaml:"burst" env-default:"20"`
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг из файла, переменные окружения переопределяют значения файла.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
	}
	return &cfg, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  SecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"RedisConnection:\n"+
			"  Address: %s\n"+
			"  Password: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"Blob:\n"+
			"  Dir: %s\n"+
			"  PublicURL: %s\n"+
			"  S3Endpoint: %s\n"+
			"  S3AccessKey: %s\n"+
			"  S3SecretKey: %s\n"+
			"RateLimit:\n"+
			"  RPS: %g\n"+
			"  Burst: %d\n",
		c.Env,
		mask(c.StorageConnectionString),
		c.MigrationsPath,
		c.HTTPServer.Address,
		c.HTTPServer.Timeout,
		c.HTTPServer.IdleTimeout,
		mask(c.JWTToken.SecretKey),
		c.JWTToken.TokenTTL,
		c.RedisConnection.Address,
		mask(c.RedisConnection.Password),
		c.RedisConnection.User,
		c.RedisConnection.DB,
		mask(c.RabbitMQ.URL),
		c.RabbitMQ.Exchange,
		c.Blob.Dir,
		c.Blob.PublicURL,
		c.Blob.S3.Endpoint,
		mask(c.Blob.S3.AccessKey),
		mask(c.Blob.S3.SecretKey),
		c.RateLimit.RPS,
		c.RateLimit.Burst,
	)
}
