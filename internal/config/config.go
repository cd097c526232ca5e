package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPPort      string
	Env           string
	LogLevel      string
	DatabaseDSN   string
	DBDriver      string
	SwaggerEnable bool
	UploadDir     string
	PublicBaseURL string
	EventLogDir   string
	Postgres      PostgresConfig
	Storage       StorageConfig
	Redis         RedisConfig
	Auth          AuthConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	FeedTTL  time.Duration
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func Load() *AppConfig {
	pg := PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", ""),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		DBName:   getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}

	storage := StorageConfig{
		Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:    getEnv("STORAGE_BUCKET", ""),
		Region:    getEnv("STORAGE_REGION", ""),
		UseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
		PublicURL: getEnv("STORAGE_PUBLIC_URL", ""),
	}

	dsn := getEnv("DATABASE_DSN", "")
	driver := strings.ToLower(getEnv("DB_DRIVER", ""))

	if driver == "" {
		lower := strings.ToLower(dsn)
		switch {
		case strings.HasPrefix(lower, "postgres"):
			driver = "postgres"
		case pg.Host != "":
			driver = "postgres"
		default:
			driver = "sqlite"
		}
	}

	if driver == "postgres" {
		if dsn == "" {
			dsn = buildPostgresDSN(pg)
		}
	} else {
		if dsn == "" {
			dsn = "file:sociagram.db?_foreign_keys=on"
		}
	}

	cfg := &AppConfig{
		HTTPPort:      getEnv("HTTP_PORT", "5000"),
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		DatabaseDSN:   dsn,
		DBDriver:      driver,
		SwaggerEnable: getEnv("SWAGGER_ENABLE", "true") == "true",
		UploadDir:     getEnv("UPLOAD_DIR", "public"),
		PublicBaseURL: strings.TrimSpace(getEnv("PUBLIC_BASE_URL", "")),
		EventLogDir:   strings.TrimSpace(getEnv("EVENT_LOG_DIR", "")),
		Postgres:      pg,
		Storage:       storage,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			FeedTTL:  getEnvDuration("REDIS_FEED_TTL", time.Minute),
		},
		Auth: AuthConfig{
			AccessSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
	}
	return cfg
}

func buildPostgresDSN(pg PostgresConfig) string {
	host := pg.Host
	if host == "" {
		host = "localhost"
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}

	u := &url.URL{Scheme: "postgres"}
	if pg.User != "" {
		if pg.Password != "" {
			u.User = url.UserPassword(pg.User, pg.Password)
		} else {
			u.User = url.User(pg.User)
		}
	}
	u.Host = fmt.Sprintf("%s:%s", host, port)
	if pg.DBName != "" {
		u.Path = pg.DBName
	}
	q := u.Query()
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func MustLoad() *AppConfig {
	cfg := Load()
	if cfg.HTTPPort == "" {
		log.Fatal("HTTP_PORT required")
	}
	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN required for postgres driver")
	}
	if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
		log.Fatal("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET required")
	}
	return cfg
}
