/**
 * @description
 * Configuration management for the traslados service.
 */
package config

import (
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	JWTSecret           string `mapstructure:"JWT_SECRET"`
	InternalAPIKey      string `mapstructure:"INTERNAL_API_KEY"`
	StripeAPIURL        string `mapstructure:"STRIPE_API_URL"`
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	RedisURL            string `mapstructure:"REDIS_URL"`

	BaseFeeCents      int64  `mapstructure:"BASE_FEE_CENTS"`
	FeeCurrency       string `mapstructure:"FEE_CURRENCY"`
	SessionTTLMinutes int    `mapstructure:"SESSION_TTL_MINUTES"`

	ReconcileSchedule      string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileMinAgeSeconds int    `mapstructure:"RECONCILE_MIN_AGE_SECONDS"`
	ReconcileBatchLimit    int    `mapstructure:"RECONCILE_BATCH_LIMIT"`

	MessageRateLimit         int64 `mapstructure:"MESSAGE_RATE_LIMIT"`
	MessageRateWindowSeconds int   `mapstructure:"MESSAGE_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STRIPE_API_URL", "https://api.stripe.com")
	viper.SetDefault("BASE_FEE_CENTS", 50000)
	viper.SetDefault("FEE_CURRENCY", "brl")
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("RECONCILE_SCHEDULE", "@every 60s")
	viper.SetDefault("RECONCILE_MIN_AGE_SECONDS", 120)
	viper.SetDefault("RECONCILE_BATCH_LIMIT", 100)
	viper.SetDefault("MESSAGE_RATE_LIMIT", 20)
	viper.SetDefault("MESSAGE_RATE_WINDOW_SECONDS", 60)
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("STRIPE_API_URL")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("BASE_FEE_CENTS")
	_ = viper.BindEnv("FEE_CURRENCY")
	_ = viper.BindEnv("SESSION_TTL_MINUTES")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_MIN_AGE_SECONDS")
	_ = viper.BindEnv("RECONCILE_BATCH_LIMIT")
	_ = viper.BindEnv("MESSAGE_RATE_LIMIT")
	_ = viper.BindEnv("MESSAGE_RATE_WINDOW_SECONDS")

	err = viper.Unmarshal(&config)
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}
	return
}
