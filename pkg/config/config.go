package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Payment       PaymentConfig
	Analytics     AnalyticsConfig
	Notifications NotificationsConfig
	Mail          MailConfig
	Learning      LearningConfig
	Storage       StorageConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentConfig configures the PayDunya provider client and the reconciler.
type PaymentConfig struct {
	MasterKey     string
	PrivateKey    string
	Token         string
	Sandbox       bool
	StoreName     string
	CallbackURL   string
	FrontendURL   string
	MinimumAmount float64
	Timeout       time.Duration
}

// AnalyticsConfig governs cache behaviour for the instructor dashboard.
type AnalyticsConfig struct {
	CacheTTL time.Duration
}

// NotificationsConfig tunes the fan-out worker queue.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
}

// MailConfig selects the outbound mailer.
type MailConfig struct {
	SendgridAPIKey string
	FromAddress    string
	FromName       string
}

// StorageConfig locates on-disk artifacts such as rendered certificates.
type StorageConfig struct {
	CertificateDir string
}

// LearningConfig holds XP reward tuning.
type LearningConfig struct {
	LessonXP     int
	MaxManualXP  int
	PassingRatio float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payment = PaymentConfig{
		MasterKey:     v.GetString("PAYDUNYA_MASTER_KEY"),
		PrivateKey:    v.GetString("PAYDUNYA_PRIVATE_KEY"),
		Token:         v.GetString("PAYDUNYA_TOKEN"),
		Sandbox:       v.GetBool("PAYDUNYA_SANDBOX"),
		StoreName:     v.GetString("PAYDUNYA_STORE_NAME"),
		CallbackURL:   v.GetString("PAYMENT_CALLBACK_URL"),
		FrontendURL:   v.GetString("FRONTEND_URL"),
		MinimumAmount: v.GetFloat64("PAYMENT_MINIMUM_AMOUNT"),
		Timeout:       parseDuration(v.GetString("PAYMENT_TIMEOUT"), 15*time.Second),
	}

	cfg.Analytics = AnalyticsConfig{
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATION_BUFFER"),
	}

	cfg.Mail = MailConfig{
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
	}

	cfg.Storage = StorageConfig{
		CertificateDir: v.GetString("CERTIFICATE_DIR"),
	}

	cfg.Learning = LearningConfig{
		LessonXP:     v.GetInt("LESSON_XP"),
		MaxManualXP:  v.GetInt("MAX_MANUAL_XP"),
		PassingRatio: v.GetFloat64("QUIZ_PASSING_RATIO"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "emra_lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "emra-lms")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYDUNYA_MASTER_KEY", "")
	v.SetDefault("PAYDUNYA_PRIVATE_KEY", "")
	v.SetDefault("PAYDUNYA_TOKEN", "")
	v.SetDefault("PAYDUNYA_SANDBOX", true)
	v.SetDefault("PAYDUNYA_STORE_NAME", "e-MRA Academy")
	v.SetDefault("PAYMENT_CALLBACK_URL", "http://localhost:8080/api/payments/paydunya/ipn/")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	// XOF invoices below 200 are rejected by the gateway.
	v.SetDefault("PAYMENT_MINIMUM_AMOUNT", 200)
	v.SetDefault("PAYMENT_TIMEOUT", "15s")

	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_BUFFER", 64)

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@emra.dev")
	v.SetDefault("MAIL_FROM_NAME", "e-MRA Academy")

	v.SetDefault("CERTIFICATE_DIR", "./var/certificates")

	v.SetDefault("LESSON_XP", 50)
	v.SetDefault("MAX_MANUAL_XP", 100)
	v.SetDefault("QUIZ_PASSING_RATIO", 0.6)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
