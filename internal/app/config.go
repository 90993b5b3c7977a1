package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/heirloom-backend/internal/platform/envutil"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	DBDriver   string
	SQLitePath string

	LockBackend string
	LockPrefix  string
	// LockWait bounds row-lock waits inside a transaction (Postgres lock_timeout).
	// Person locks never wait.
	LockWait    time.Duration
	LockTTL     time.Duration

	ScanParallelism int
	// ScanInterval > 0 runs ScanFamilies periodically in the server process.
	ScanInterval time.Duration

	MetricsAddr string
	ServiceName string
	// CORSOrigins empty means the local dev origins.
	CORSOrigins []string
}

// LoadEnvFiles loads .env then .env.local. Values already set in the environment win.
func LoadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

func LoadConfig(log *logger.Logger) Config {
	driver := strings.ToLower(envutil.String("DB_DRIVER", DBDriverPostgres, log))
	if driver != DBDriverSQLite {
		driver = DBDriverPostgres
	}
	lockBackend := strings.ToLower(envutil.String("LOCK_BACKEND", LockBackendMemory, log))
	if lockBackend != LockBackendRedis {
		lockBackend = LockBackendMemory
	}
	parallelism := envutil.Int("SCAN_PARALLELISM", 4)
	if parallelism < 1 {
		parallelism = 1
	}
	return Config{
		Port:            envutil.String("PORT", "8080", log),
		LogMode:         envutil.String("LOG_MODE", "development", nil),
		Environment:     envutil.String("APP_ENV", "development", log),
		Version:         envutil.String("APP_VERSION", "dev", nil),
		DBDriver:        driver,
		SQLitePath:      envutil.String("SQLITE_PATH", "heirloom.db", log),
		LockBackend:     lockBackend,
		LockPrefix:      envutil.String("LOCK_PREFIX", "heirloom:lock:", log),
		LockWait:        envutil.Millis("LOCK_WAIT_MS", 2*time.Second),
		LockTTL:         envutil.Millis("LOCK_TTL_MS", 30*time.Second),
		ScanParallelism: parallelism,
		ScanInterval:    time.Duration(envutil.Int("SCAN_INTERVAL_SECONDS", 0)) * time.Second,
		MetricsAddr:     envutil.String("METRICS_ADDR", ":9090", log),
		ServiceName:     envutil.String("OTEL_SERVICE_NAME", "heirloom", log),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", nil)),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
