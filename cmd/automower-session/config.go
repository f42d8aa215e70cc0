package main

import "time"

// Config holds daemon configuration loaded from environment variables
type Config struct {
	Username       string        `envconfig:"AUTOMOWER_USERNAME" required:"true"`
	Password       string        `envconfig:"AUTOMOWER_PASSWORD" required:"true"`
	AppKey         string        `envconfig:"AUTOMOWER_APP_KEY" required:"true"`
	AuthURL        string        `envconfig:"AUTH_URL" default:"https://api.authentication.husqvarnagroup.dev"`
	StreamURL      string        `envconfig:"STREAM_URL" default:"wss://ws.openapi.husqvarna.dev/v1"`
	APIURL         string        `envconfig:"API_URL" default:"https://api.amc.husqvarna.dev"`
	APITimeout     time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	PollInterval   time.Duration `envconfig:"POLL_INTERVAL" default:"1m"`
	StaleThreshold time.Duration `envconfig:"STALE_THRESHOLD" default:"1h"`

	RedisURL  string        `envconfig:"REDIS_URL"` // Empty keeps statuses in memory
	StatusTTL time.Duration `envconfig:"STATUS_TTL" default:"24h"`

	Port              int           `envconfig:"PORT" default:"8080"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Env       string `envconfig:"ENV" default:"prod"`
}

