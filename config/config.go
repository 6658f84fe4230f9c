package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RabbitURL is optional; without it events are not synced or published.
	RabbitURL string
	// RedisAddr is optional; without it scanner presence is kept in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TokenSecret        string
	TokenAllowUnsigned bool

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool

	PaymentBaseURL     string
	PaymentSecretKey   string
	PaymentCallbackURL string
	ReconcileInterval  time.Duration
	ReconcileMinAge    time.Duration

	PresenceTTL time.Duration
	LogLevel    string
}

// Load reads .env when present, then the environment. Environment values win.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file, using environment only")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8082")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TOKEN_SECRET", "")
	v.SetDefault("TOKEN_ALLOW_UNSIGNED", false)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PATH_STYLE", false)
	v.SetDefault("PAYMENT_BASE_URL", "")
	v.SetDefault("PAYMENT_SECRET_KEY", "")
	v.SetDefault("PAYMENT_CALLBACK_URL", "")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("RECONCILE_MIN_AGE", "10m")
	v.SetDefault("PRESENCE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		DBSSLMode:          v.GetString("DB_SSLMODE"),
		RabbitURL:          v.GetString("RABBITMQ_URL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		TokenSecret:        v.GetString("TOKEN_SECRET"),
		TokenAllowUnsigned: v.GetBool("TOKEN_ALLOW_UNSIGNED"),
		S3Endpoint:         v.GetString("S3_ENDPOINT"),
		S3Region:           v.GetString("S3_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3AccessKey:        v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:        v.GetString("S3_SECRET_KEY"),
		S3PathStyle:        v.GetBool("S3_PATH_STYLE"),
		PaymentBaseURL:     v.GetString("PAYMENT_BASE_URL"),
		PaymentSecretKey:   v.GetString("PAYMENT_SECRET_KEY"),
		PaymentCallbackURL: v.GetString("PAYMENT_CALLBACK_URL"),
		ReconcileInterval:  v.GetDuration("RECONCILE_INTERVAL"),
		ReconcileMinAge:    v.GetDuration("RECONCILE_MIN_AGE"),
		PresenceTTL:        v.GetDuration("PRESENCE_TTL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < 16 {
		return fmt.Errorf("TOKEN_SECRET must be at least 16 characters")
	}
	if c.PaymentBaseURL != "" && c.PaymentSecretKey == "" {
		return fmt.Errorf("PAYMENT_SECRET_KEY is required when PAYMENT_BASE_URL is set")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	return nil
}
