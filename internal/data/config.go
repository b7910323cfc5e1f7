package data

import "time"

type MailerConfig struct {
	Port       string           `mapstructure:"port" validate:"required,numeric"`
	Debug      bool             `mapstructure:"debug"`
	StoreName  string           `mapstructure:"store_name" validate:"required"`
	Cors       CorsConfig       `mapstructure:"cors"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Queue      QueueConfig      `mapstructure:"queue"`
	AttemptLog AttemptLogConfig `mapstructure:"attempt_log"`
	Tiers      TiersConfig      `mapstructure:"tiers"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AdminConfig struct {
	// Nur zur Prüfung eingehender Tokens, ausgestellt werden sie vom Shop-Backend.
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	Email     string `mapstructure:"email" validate:"omitempty,email"`
}

type QueueConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"gte=1"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	Backoff     string        `mapstructure:"backoff" validate:"omitempty,oneof=fixed exponential sinus"`
}

type AttemptLogConfig struct {
	Backend         string `mapstructure:"backend" validate:"oneof=file redis none"`
	Path            string `mapstructure:"path"`
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisKey        string `mapstructure:"redis_key"`
	MemoryCapacity  int    `mapstructure:"memory_capacity" validate:"gte=1"`
	DurableCapacity int    `mapstructure:"durable_capacity" validate:"gte=1"`
}

type TiersConfig struct {
	Primary        TierConfig `mapstructure:"primary"`
	Fallback       TierConfig `mapstructure:"fallback"`
	AllowSimulated bool       `mapstructure:"allow_simulated"`
}

type TierConfig struct {
	Kind string `mapstructure:"kind" validate:"omitempty,oneof=smtp http simulated"` // smtp, http, simulated
	From string `mapstructure:"from" validate:"omitempty,email"`

	// smtp
	Host     string `mapstructure:"host"`
	SMTPPort int    `mapstructure:"smtp_port" validate:"gte=0,lt=65536"`
	Username string `mapstructure:"username,omitempty"`
	Password string `mapstructure:"password,omitempty"`
	TLS      string `mapstructure:"tls" validate:"omitempty,oneof=mandatory opportunistic none"`

	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	GreetingTimeout   time.Duration `mapstructure:"greeting_timeout"`
	SocketTimeout     time.Duration `mapstructure:"socket_timeout"`

	// http relay
	BaseURL     string     `mapstructure:"base_url" validate:"omitempty,url"`
	Endpoint    string     `mapstructure:"endpoint"`
	ContentType string     `mapstructure:"content_type"`
	Auth        AuthConfig `mapstructure:"auth"`
}

type AuthConfig struct {
	Type         string `mapstructure:"type"` // basic, bearer, oauth2, none
	Username     string `mapstructure:"username,omitempty"`
	Password     string `mapstructure:"password,omitempty"`
	Token        string `mapstructure:"token,omitempty"`
	ClientID     string `mapstructure:"client_id,omitempty"`
	ClientSecret string `mapstructure:"client_secret,omitempty"`
	TokenURL     string `mapstructure:"token_url,omitempty"`
	RefreshToken string `mapstructure:"refresh_token,omitempty"`
}
