package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Storage     StorageConfig     `json:"storage"`
	Certificate CertificateConfig `json:"certificate"`
	Admin       AdminConfig       `json:"admin"`
	Logging     LoggingConfig     `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	// PublicURL is the externally reachable base URL, used in verification links.
	PublicURL      string   `json:"public_url"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver         string        `json:"driver"` // postgres | sqlite
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	Path           string        `json:"path"` // sqlite file
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig controls where certificate templates live.
type StorageConfig struct {
	Bucket          string        `json:"bucket"`
	Region          string        `json:"region"`
	Endpoint        string        `json:"endpoint"`
	Prefix          string        `json:"prefix"`
	AccessKeyID     string        `json:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key"`
	TemplateDir     string        `json:"template_dir"`
	TemplatePath    string        `json:"template_path"`
	LookupTimeout   time.Duration `json:"lookup_timeout"`
	PresignTTL      time.Duration `json:"presign_ttl"`
}

// CertificateConfig holds the compositor tunables.
type CertificateConfig struct {
	EventLabel     string  `json:"event_label"`
	FontSize       float64 `json:"font_size"`
	VerticalOffset float64 `json:"vertical_offset"`
	ColorR         int     `json:"color_r"`
	ColorG         int     `json:"color_g"`
	ColorB         int     `json:"color_b"`
	FontPath       string  `json:"font_path"`
	DisableQR      bool    `json:"disable_qr"`
	QRSize         float64 `json:"qr_size"`
	QRBottomOffset float64 `json:"qr_bottom_offset"`
}

// AdminConfig holds the admin identity and session settings.
type AdminConfig struct {
	Email         string        `json:"email"`
	Password      string        `json:"password"`
	PasswordHash  string        `json:"password_hash"`
	SessionSecret string        `json:"session_secret"`
	SessionTTL    time.Duration `json:"session_ttl"`
	SecureCookie  bool          `json:"secure_cookie"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			PublicURL:    "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "certificate_portal",
			SSLMode:        "disable",
			Path:           "certificates.db",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    time.Hour,
		},
		Storage: StorageConfig{
			Region:        "us-east-1",
			TemplateDir:   ".",
			TemplatePath:  "uploads/certificate_template.pdf",
			LookupTimeout: 5 * time.Second,
			PresignTTL:    15 * time.Minute,
		},
		Certificate: CertificateConfig{
			EventLabel:     "DevFest Motihari 2025 (GDG Cloud Motihari)",
			FontSize:       60,
			VerticalOffset: -30,
			ColorR:         51,
			ColorG:         51,
			ColorB:         51,
			QRSize:         100,
			QRBottomOffset: 50,
		},
		Admin: AdminConfig{
			SessionTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	setString(&config.Server.Host, "SERVER_HOST")
	setInt(&config.Server.Port, "SERVER_PORT")
	setString(&config.Server.PublicURL, "PUBLIC_URL")
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	setString(&config.Database.Driver, "DATABASE_DRIVER")
	setString(&config.Database.Host, "DATABASE_HOST")
	setInt(&config.Database.Port, "DATABASE_PORT")
	setString(&config.Database.User, "DATABASE_USER")
	setString(&config.Database.Password, "DATABASE_PASSWORD")
	setString(&config.Database.DBName, "DATABASE_DBNAME")
	setString(&config.Database.SSLMode, "DATABASE_SSLMODE")
	setString(&config.Database.Path, "DATABASE_PATH")

	setString(&config.Storage.Bucket, "S3_BUCKET")
	setString(&config.Storage.Region, "AWS_REGION")
	setString(&config.Storage.Endpoint, "S3_ENDPOINT")
	setString(&config.Storage.Prefix, "S3_PREFIX")
	setString(&config.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&config.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&config.Storage.TemplateDir, "TEMPLATE_DIR")
	setString(&config.Storage.TemplatePath, "TEMPLATE_PATH")
	setDuration(&config.Storage.LookupTimeout, "LOOKUP_TIMEOUT")

	setString(&config.Certificate.EventLabel, "EVENT_LABEL")
	setFloat(&config.Certificate.FontSize, "CERT_FONT_SIZE")
	setFloat(&config.Certificate.VerticalOffset, "CERT_VERTICAL_OFFSET")
	setString(&config.Certificate.FontPath, "CERT_FONT_PATH")
	setBool(&config.Certificate.DisableQR, "CERT_DISABLE_QR")
	setFloat(&config.Certificate.QRSize, "CERT_QR_SIZE")
	setFloat(&config.Certificate.QRBottomOffset, "CERT_QR_BOTTOM_OFFSET")

	setString(&config.Admin.Email, "ADMIN_EMAIL")
	setString(&config.Admin.Password, "ADMIN_PASSWORD")
	setString(&config.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&config.Admin.SessionSecret, "SESSION_SECRET")
	setBool(&config.Admin.SecureCookie, "SECURE_COOKIE")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setBool(&config.Logging.Development, "LOG_DEVELOPMENT")
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setFloat(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func setBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			errs = append(errs, errors.New("database.host and database.db_name are required for postgres"))
		}
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Certificate.FontSize <= 0 {
		errs = append(errs, errors.New("certificate.font_size must be positive"))
	}
	if !c.Certificate.DisableQR && c.Certificate.QRSize <= 0 {
		errs = append(errs, errors.New("certificate.qr_size must be positive"))
	}
	if c.Storage.LookupTimeout <= 0 {
		errs = append(errs, errors.New("storage.lookup_timeout must be positive"))
	}
	if c.Admin.SessionSecret != "" && len(c.Admin.SessionSecret) < 16 {
		errs = append(errs, errors.New("admin.session_secret must be at least 16 characters"))
	}

	return errors.Join(errs...)
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
