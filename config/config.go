package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	Firebase   FirebaseConfig
	Cloudinary CloudinaryConfig
	Admin      AdminConfig
	Stats      StatsConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string // empty disables the MySQL archive
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// FirebaseConfig points at the Realtime Database used as the fire-and-forget
// persistence side channel. Empty values disable it.
type FirebaseConfig struct {
	ServiceAccountPath string
	DatabaseURL        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// AdminConfig holds dashboard credentials. Passwords are bcrypt hashes.
type AdminConfig struct {
	AdminUsername       string
	AdminPasswordHash   string
	FounderUsername     string
	FounderPasswordHash string
}

type StatsConfig struct {
	Interval time.Duration
}

// Load reads configuration from the environment (STUDENTCONNECT_* variables)
// over built-in defaults.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("studentconnect")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "3001")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiry", 24*time.Hour)
	v.SetDefault("jwt.issuer", "studentconnect")

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.google_redirect_url", "")

	v.SetDefault("firebase.service_account_path", "")
	v.SetDefault("firebase.database_url", "")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")

	v.SetDefault("admin.admin_username", "admin")
	// bcrypt of the development default "admin123"
	v.SetDefault("admin.admin_password_hash", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
	v.SetDefault("admin.founder_username", "founder")
	v.SetDefault("admin.founder_password_hash", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

	v.SetDefault("stats.interval", 5*time.Second)

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Expiry: v.GetDuration("jwt.expiry"),
			Issuer: v.GetString("jwt.issuer"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     v.GetString("oauth.google_client_id"),
			GoogleClientSecret: v.GetString("oauth.google_client_secret"),
			GoogleRedirectURL:  v.GetString("oauth.google_redirect_url"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: v.GetString("firebase.service_account_path"),
			DatabaseURL:        v.GetString("firebase.database_url"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("cloudinary.cloud_name"),
			APIKey:    v.GetString("cloudinary.api_key"),
			APISecret: v.GetString("cloudinary.api_secret"),
		},
		Admin: AdminConfig{
			AdminUsername:       v.GetString("admin.admin_username"),
			AdminPasswordHash:   v.GetString("admin.admin_password_hash"),
			FounderUsername:     v.GetString("admin.founder_username"),
			FounderPasswordHash: v.GetString("admin.founder_password_hash"),
		},
		Stats: StatsConfig{
			Interval: v.GetDuration("stats.interval"),
		},
	}
}
