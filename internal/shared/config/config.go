package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Mail     MailConfig     `mapstructure:"mail"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Frontend FrontendConfig `mapstructure:"frontend"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	PublicURL    string        `mapstructure:"public_url"` // externally reachable base URL for gateway callbacks
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"`
	OTPExpiry          time.Duration `mapstructure:"otp_expiry"`
	LoginMaxAttempts   int           `mapstructure:"login_max_attempts"`
	LoginWindow        time.Duration `mapstructure:"login_window"`
}

// PaymentConfig holds payment gateway configuration.
type PaymentConfig struct {
	Esewa          EsewaConfig   `mapstructure:"esewa"`
	Khalti         KhaltiConfig  `mapstructure:"khalti"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
}

// EsewaConfig holds eSewa gateway configuration.
type EsewaConfig struct {
	ProductCode string `mapstructure:"product_code"`
	SecretKey   string `mapstructure:"secret_key"`
	FormURL     string `mapstructure:"form_url"`   // hosted payment form endpoint
	StatusURL   string `mapstructure:"status_url"` // transaction status-check API
}

// KhaltiConfig holds Khalti gateway configuration.
type KhaltiConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url"` // epayment API base
}

// MailConfig holds SMTP configuration.
type MailConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"` // base URL for serving uploaded objects
}

// KafkaConfig holds Kafka event publishing configuration.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// FrontendConfig holds frontend redirect configuration.
type FrontendConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	SuccessPath string `mapstructure:"success_path"`
	FailurePath string `mapstructure:"failure_path"`
}

// SuccessURL returns the absolute payment-success page URL.
func (c *FrontendConfig) SuccessURL() string {
	return c.BaseURL + c.SuccessPath
}

// FailureURL returns the absolute payment-failure page URL.
func (c *FrontendConfig) FailureURL() string {
	return c.BaseURL + c.FailurePath
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/soundcraft")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("SOUNDCRAFT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("SOUNDCRAFT_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("SOUNDCRAFT_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("SOUNDCRAFT_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("SOUNDCRAFT_ESEWA_SECRET_KEY"); key != "" {
		cfg.Payment.Esewa.SecretKey = key
	}
	if key := os.Getenv("SOUNDCRAFT_KHALTI_SECRET_KEY"); key != "" {
		cfg.Payment.Khalti.SecretKey = key
	}
	if password := os.Getenv("SOUNDCRAFT_MAIL_PASSWORD"); password != "" {
		cfg.Mail.Password = password
	}
	if key := os.Getenv("SOUNDCRAFT_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "soundcraft")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)
	v.SetDefault("auth.refresh_token_expiry", 7*24*time.Hour)
	v.SetDefault("auth.otp_expiry", 10*time.Minute)
	v.SetDefault("auth.login_max_attempts", 5)
	v.SetDefault("auth.login_window", 15*time.Minute)

	// Payment defaults (UAT endpoints; production values come from config)
	v.SetDefault("payment.esewa.product_code", "EPAYTEST")
	v.SetDefault("payment.esewa.form_url", "https://rc-epay.esewa.com.np/api/epay/main/v2/form")
	v.SetDefault("payment.esewa.status_url", "https://rc.esewa.com.np/api/epay/transaction/status/")
	v.SetDefault("payment.khalti.base_url", "https://dev.khalti.com/api/v2")
	v.SetDefault("payment.gateway_timeout", 15*time.Second)

	// Mail defaults
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from_name", "SoundCraft")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "soundcraft.orders")

	// Frontend defaults
	v.SetDefault("frontend.base_url", "http://localhost:3000")
	v.SetDefault("frontend.success_path", "/payment-success")
	v.SetDefault("frontend.failure_path", "/payment-failure")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
