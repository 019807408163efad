package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"taskforge/models"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	Redis     *redis.Client
	AppConfig Config
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment    string      `json:"environment"`
	LogLevel       string      `json:"log_level"`
	ServerPort     string      `json:"server_port"`
	ServiceSecret  string      `json:"-"`
	SentryDSN      string      `json:"-"`
	DBHost         string      `json:"db_host"`
	DBPort         string      `json:"db_port"`
	DBUser         string      `json:"db_user"`
	DBPassword     string      `json:"-"`
	DBName         string      `json:"db_name"`
	DBSSLMode      string      `json:"db_ssl_mode"`
	DBMaxIdleConns int         `json:"db_max_idle_conns"`
	DBMaxOpenConns int         `json:"db_max_open_conns"`
	Redis          RedisConfig `json:"redis"`

	// Engine scheduling
	EngineCronSpec   string        `json:"engine_cron_spec"`
	EngineRunLockTTL time.Duration `json:"engine_run_lock_ttl"`
	EngineBatchLimit int           `json:"engine_batch_limit"`
}

func init() {
	// Load .env when present; containers pass real env vars instead
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		ServiceSecret:  getEnv("SERVICE_SECRET", ""),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "taskforge"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		EngineCronSpec:   getEnv("ENGINE_CRON_SPEC", "*/5 * * * *"),
		EngineRunLockTTL: time.Duration(getEnvAsInt("ENGINE_RUN_LOCK_TTL_SECONDS", 240)) * time.Second,
		EngineBatchLimit: getEnvAsInt("ENGINE_BATCH_LIMIT", 0),
	}

	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.ServiceSecret == "" {
		return fmt.Errorf("SERVICE_SECRET is required")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Successfully connected to the database")
	log.Println("Starting database migration...")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

func ConnectRedis() error {
	if !AppConfig.Redis.Enabled {
		log.Println("Redis disabled; engine runs will not take the advisory lock")
		return nil
	}
	Redis = redis.NewClient(&redis.Options{
		Addr:     AppConfig.Redis.Address,
		Password: AppConfig.Redis.Password,
		DB:       AppConfig.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	log.Println("Successfully connected to Redis")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Engine cron: %s (batch limit %d)", AppConfig.EngineCronSpec, AppConfig.EngineBatchLimit)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Sequence{},
		&models.SequenceVersion{},
		&models.SequenceStep{},
		&models.SequenceEnrollment{},
		&models.SequenceAssignment{},
		&models.SequenceNotification{},
	)
}
