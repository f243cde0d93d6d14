package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Monnify           MonnifyConfig
	VTPass            VTPassConfig
	Billpay           BillpayConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type MonnifyConfig struct {
	BaseURL      string
	APIKey       string
	SecretKey    string
	ContractCode string
	HTTPTimeout  time.Duration
}

type VTPassConfig struct {
	BaseURL     string
	Username    string
	APIKey      string
	PublicKey   string
	SecretKey   string
	HTTPTimeout time.Duration
}

type BillpayConfig struct {
	RequeryMaxAttempts  int32
	RequeryInitialDelay time.Duration
	RequeryMaxDelay     time.Duration
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	RequeryInterval   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billpay-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Monnify: MonnifyConfig{
			BaseURL:      getEnv("MONNIFY_BASE_URL", "https://sandbox.monnify.com"),
			APIKey:       getEnv("MONNIFY_API_KEY", ""),
			SecretKey:    getEnv("MONNIFY_SECRET_KEY", ""),
			ContractCode: getEnv("MONNIFY_CONTRACT_CODE", ""),
			HTTPTimeout:  getSecondsEnv("MONNIFY_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		VTPass: VTPassConfig{
			BaseURL:     getEnv("VTPASS_BASE_URL", "https://sandbox.vtpass.com/api"),
			Username:    getEnv("VTPASS_USERNAME", ""),
			APIKey:      getEnv("VTPASS_API_KEY", ""),
			PublicKey:   getEnv("VTPASS_PUBLIC_KEY", ""),
			SecretKey:   getEnv("VTPASS_SECRET_KEY", ""),
			HTTPTimeout: getSecondsEnv("VTPASS_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Billpay: BillpayConfig{
			RequeryMaxAttempts:  int32(getIntEnv("BILLPAY_REQUERY_MAX_ATTEMPTS", 5)),
			RequeryInitialDelay: getSecondsEnv("BILLPAY_REQUERY_INITIAL_DELAY_SECONDS", 2*time.Second),
			RequeryMaxDelay:     getSecondsEnv("BILLPAY_REQUERY_MAX_DELAY_SECONDS", 30*time.Second),
			PendingTimeout:      getMinutesEnv("BILLPAY_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("BILLPAY_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("BILLPAY_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("BILLPAY_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			RequeryInterval:   getMinutesEnv("BILLPAY_REQUERY_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
