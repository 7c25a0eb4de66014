package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Auth0      `yaml:"auth0"`
	Tokens     `yaml:"tokens"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`

	// BaseURL is the externally reachable origin used to build the links
	// embedded in verification emails and the OAuth callback.
	BaseURL string `yaml:"base_url" env:"BASE_URL" env-required:"true"`
}

type Auth0 struct {
	Domain       string `yaml:"domain" env:"AUTH0_DOMAIN" env-required:"true"`
	ClientID     string `yaml:"client_id" env:"AUTH0_CLIENT_ID" env-required:"true"`
	ClientSecret string `yaml:"client_secret" env:"AUTH0_CLIENT_SECRET" env-required:"true"`

	ManagementClientID     string `yaml:"management_client_id" env:"AUTH0_MANAGEMENT_CLIENT_ID" env-required:"true"`
	ManagementClientSecret string `yaml:"management_client_secret" env:"AUTH0_MANAGEMENT_CLIENT_SECRET" env-required:"true"`
	ManagementAudience     string `yaml:"management_audience" env:"AUTH0_MANAGEMENT_AUDIENCE"`

	Connection string `yaml:"connection" env:"AUTH0_CONNECTION_NAME" env-default:"Username-Password-Authentication"`
	Scopes     string `yaml:"scopes" env-default:"openid profile email offline_access"`

	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"10s"`
}

type Tokens struct {
	VerificationTokenTTL    time.Duration `yaml:"verification_token_ttl" env:"VERIFICATION_TOKEN_TTL" env-default:"24h"`
	VerificationTokenSecret string        `yaml:"verification_token_secret" env:"JWT_SECRET" env-required:"true"`
}

type Redis struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env-default:"0"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"24h"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"email_messages"`
}

// MailerConfig is the mail_sender worker's slice of the configuration.
type MailerConfig struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	SMTP     `yaml:"smtp"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-required:"true"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USER" env-required:"true"`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-required:"true"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"noreply@example.com"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}

func MustLoadMailer(configPath string) *MailerConfig {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg MailerConfig

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}
