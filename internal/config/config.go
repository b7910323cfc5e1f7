package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/data"
)

const (
	DefaultPort       string        = "4224"
	DefaultRetryDelay time.Duration = 10 * time.Second
	EnvPrefix         string        = "MAILER"
)

var defaults = map[string]any{
	"port":       DefaultPort,
	"debug":      false,
	"store_name": "Storefront",

	"cors.allowed_origins": []string{},
	"admin.jwt_secret":     "",
	"admin.email":          "",

	"queue.concurrency": 3,
	"queue.max_retries": 3,
	"queue.retry_delay": DefaultRetryDelay,
	"queue.backoff":     "fixed",

	"attempt_log.backend":          "file",
	"attempt_log.path":             "./data/email_log.json",
	"attempt_log.redis_addr":       "localhost:6379",
	"attempt_log.redis_db":         0,
	"attempt_log.redis_key":        "mailer:attempt_log",
	"attempt_log.memory_capacity":  100,
	"attempt_log.durable_capacity": 500,

	"tiers.allow_simulated": false,
}

var tierDefaults = map[string]any{
	"kind":               "",
	"from":               "",
	"host":               "",
	"smtp_port":          587,
	"username":           "",
	"password":           "",
	"tls":                "opportunistic",
	"connection_timeout": 10 * time.Second,
	"greeting_timeout":   10 * time.Second,
	"socket_timeout":     30 * time.Second,
	"base_url":           "",
	"endpoint":           "/messages",
	"content_type":       "application/json",
	"auth.type":          "none",
}

// Load reads mailer.cfg.yaml (or the given file), applies MAILER_* environment
// overrides and validates the result.
func Load(logger *zap.Logger, file string) (*data.MailerConfig, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, tier := range []string{"primary", "fallback"} {
		for key, val := range tierDefaults {
			v.SetDefault("tiers."+tier+"."+key, val)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mailer.cfg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("Konfigurationsdatei nicht gefunden, verwende Standardwerte")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg data.MailerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	logger.Info("Konfiguration geladen:",
		zap.String("port", cfg.Port),
		zap.Bool("debug", cfg.Debug),
		zap.String("primary_tier", cfg.Tiers.Primary.Kind),
		zap.String("fallback_tier", cfg.Tiers.Fallback.Kind),
		zap.String("attempt_log_backend", cfg.AttemptLog.Backend))

	return &cfg, nil
}

func Validate(cfg *data.MailerConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.AttemptLog.Backend == "file" && cfg.AttemptLog.Path == "" {
		return errors.New("invalid configuration: attempt_log.path is required for the file backend")
	}
	return nil
}
