package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreRemote   = "remote"
	StoreMemory   = "memory"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPAddr    string

	// Store где живут бронирования: своя БД, REST API маркетплейса или память процесса
	Store          string
	DBDSN          string
	BackendURL     string
	BackendToken   string
	BackendTimeout time.Duration
	BackendRetries uint64

	RedisAddr string
	// LockTTL время жизни блокировки расписания в redis.
	// Должно покрывать весь допуск бронирования, включая запросы к бэкенду.
	LockTTL time.Duration

	TelegramToken  string
	TelegramChatID int64

	TutorTimezone        *time.Location
	CancellationGrace    time.Duration
	MaxSessionDuration   time.Duration
	ReseedEachRequest    bool
	IndexPruneInterval   time.Duration
	AvailabilityCacheTTL time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int
	RunMigrations        bool
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		Environment:  getenv("ENV", "development"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		Store:        getenv("STORE", StorePostgres),
		DBDSN:        os.Getenv("DB_DSN"),
		BackendURL:   os.Getenv("BACKEND_URL"),
		BackendToken: os.Getenv("BACKEND_TOKEN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),

		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	var err error
	if cfg.TelegramChatID, err = getInt64("TELEGRAM_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.BackendRetries, err = getUint("BACKEND_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDuration("SCHEDULE_LOCK_TTL", admissionBudget(cfg.BackendTimeout, cfg.BackendRetries)); err != nil {
		return nil, err
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("SCHEDULE_LOCK_TTL must be positive")
	}
	if cfg.CancellationGrace, err = getDuration("CANCELLATION_GRACE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MaxSessionDuration, err = getDuration("MAX_SESSION_DURATION", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IndexPruneInterval, err = getDuration("INDEX_PRUNE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.AvailabilityCacheTTL, err = getDuration("AVAILABILITY_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}

	// С удалённым хранилищем другие экземпляры тоже пишут бронирования,
	// поэтому индекс по умолчанию перечитывается на каждый запрос
	if cfg.ReseedEachRequest, err = getBool("SCHEDULE_RESEED_EACH_REQUEST", cfg.Store == StoreRemote); err != nil {
		return nil, err
	}

	tz := getenv("TUTOR_TIMEZONE", "UTC")
	if cfg.TutorTimezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("TUTOR_TIMEZONE %q: %w", tz, err)
	}

	// Проверяем обязательные поля
	switch cfg.Store {
	case StorePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreRemote:
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("BACKEND_URL is required but not set")
		}
	case StoreMemory:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("STORE=memory is not allowed in production")
		}
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// admissionBudget худшее время допуска бронирования с удалённым хранилищем:
// два GET с повторами (окно и активные бронирования) и один POST, плюс запас на backoff
func admissionBudget(timeout time.Duration, retries uint64) time.Duration {
	calls := 2*(retries+1) + 1
	return time.Duration(calls)*timeout + 5*time.Second
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getUint(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
