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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Booking      BookingConfig
	Slots        SlotsConfig
	Reservations ReservationsConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig points at the external booking-number validation service.
type BookingConfig struct {
	ValidationEnabled bool
	ValidationURL     string
	ValidationTimeout time.Duration
}

// SlotsConfig controls slot generation defaults and availability caching.
// The default window applies when a date has neither a weekly configuration
// nor a special schedule.
type SlotsConfig struct {
	DefaultStartTime string
	DefaultEndTime   string
	DefaultInterval  int
	DefaultCapacity  int
	CacheTTL         time.Duration
}

// ReservationsConfig governs the expiry of unattended reservations.
type ReservationsConfig struct {
	ExpiryGrace  time.Duration
	SweepEnabled bool
	SweepSpec    string
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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Booking = BookingConfig{
		ValidationEnabled: v.GetBool("BOOKING_VALIDATION_ENABLED"),
		ValidationURL:     v.GetString("BOOKING_VALIDATION_URL"),
		ValidationTimeout: parseDuration(v.GetString("BOOKING_VALIDATION_TIMEOUT"), 5*time.Second),
	}

	cfg.Slots = SlotsConfig{
		DefaultStartTime: v.GetString("SLOTS_DEFAULT_START"),
		DefaultEndTime:   v.GetString("SLOTS_DEFAULT_END"),
		DefaultInterval:  v.GetInt("SLOTS_DEFAULT_INTERVAL"),
		DefaultCapacity:  v.GetInt("SLOTS_DEFAULT_CAPACITY"),
		CacheTTL:         parseDuration(v.GetString("SLOTS_CACHE_TTL"), time.Minute),
	}

	cfg.Reservations = ReservationsConfig{
		ExpiryGrace:  parseDuration(v.GetString("RESERVATION_EXPIRY_GRACE"), 2*time.Hour),
		SweepEnabled: v.GetBool("RESERVATION_SWEEP_ENABLED"),
		SweepSpec:    v.GetString("RESERVATION_SWEEP_SPEC"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gate_slots")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_VALIDATION_ENABLED", false)
	v.SetDefault("BOOKING_VALIDATION_URL", "http://localhost:9090/validate")
	v.SetDefault("BOOKING_VALIDATION_TIMEOUT", "5s")

	v.SetDefault("SLOTS_DEFAULT_START", "08:00")
	v.SetDefault("SLOTS_DEFAULT_END", "18:00")
	v.SetDefault("SLOTS_DEFAULT_INTERVAL", 30)
	v.SetDefault("SLOTS_DEFAULT_CAPACITY", 2)
	v.SetDefault("SLOTS_CACHE_TTL", "1m")

	v.SetDefault("RESERVATION_EXPIRY_GRACE", "2h")
	v.SetDefault("RESERVATION_SWEEP_ENABLED", false)
	v.SetDefault("RESERVATION_SWEEP_SPEC", "@every 15m")
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
