package config

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/models"
)

type Config struct {
	Port        string
	LogLevel    string
	CORSOrigins []string

	DatabaseURL string
	SQLitePath  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FrontendRedirect   string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	KafkaAddress string

	ESURL      string
	ESUser     string
	ESPassword string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		Port:        EnvDefault("PORT", "8080"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),
		CORSOrigins: CSV(EnvDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  EnvDefault("TIMELINE_DB_PATH", "timeline.db"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),
		FrontendRedirect:   EnvDefault("FRONTEND_REDIRECT_URI", "http://localhost:5173/oauth-callback"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
	}

	return config, nil
}

// MustValidate stops the process when a required secret is missing. A
// service that cannot mint or verify tokens must not serve traffic.
func (c *Config) MustValidate() {
	MustNonEmpty(c.GoogleClientID, "GOOGLE_CLIENT_ID")
	MustNonEmpty(c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	MustNonEmpty(c.GoogleRedirectURI, "GOOGLE_REDIRECT_URI")
	MustNonEmpty(c.JWTSecret, "JWT_SECRET")
	MustNonEmpty(c.JWTIssuer, "JWT_ISSUER")
	MustNonEmpty(c.JWTAudience, "JWT_AUDIENCE")
}

// JWTKey decodes the base64-encoded signing key.
func (c *Config) JWTKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET is not valid base64: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("JWT_SECRET decodes to an empty key")
	}
	return key, nil
}

// InitDB opens SQLite by default, or Postgres when DATABASE_URL is set.
func (c *Config) InitDB(ctx context.Context) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if c.DatabaseURL != "" {
		dialector = postgres.Open(c.DatabaseURL)
	} else {
		dialector = sqlite.Open(c.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	configurePool(sqlDB, c.DatabaseURL == "")

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.TimelineEntry{}); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return db, nil
}

func configurePool(sqlDB *sql.DB, isSQLite bool) {
	if isSQLite {
		// SQLite serializes writers; a single connection avoids busy errors.
		sqlDB.SetMaxOpenConns(1)
		return
	}

	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}
