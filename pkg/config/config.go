package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

// Store backends understood by the store provider.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Upload storage kinds.
const (
	UploadLocal = "local"
	UploadS3    = "s3"
)

// AppConfig holds the public identity of the API
type AppConfig struct {
	Name        string
	Version     string
	Description string
	APIPrefix   string
	CORSOrigins []string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// StoreConfig selects and configures the record store
type StoreConfig struct {
	Backend        string
	UseInMemory    bool
	MongoURL       string
	DatabaseName   string
	ConnectTimeout time.Duration
}

// DBConfig holds PostgreSQL configuration, used when the store backend is postgres
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	SigningKey    string
	Algorithm     string
	ExpireMinutes int
	BcryptCost    int
}

// Expiration returns the token TTL
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

// UploadConfig holds document upload configuration
type UploadConfig struct {
	Storage           string
	Directory         string
	MaxSize           int64
	AllowedExtensions []string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKey       string
	S3SecretKey       string
}

// ExtensionAllowed reports whether the file extension (with or without the dot) is accepted
func (c *UploadConfig) ExtensionAllowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Config holds all configuration
type Config struct {
	App    AppConfig
	Server ServerConfig
	Store  StoreConfig
	DB     DBConfig
	JWT    JWTConfig
	Upload UploadConfig
	Log    LogConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("PROJECT_NAME", "ABARE Platform v2"),
			Version:     getEnv("VERSION", "0.1.0"),
			Description: getEnv("DESCRIPTION", "AI-Based Analysis of Real Estate Platform"),
			APIPrefix:   getEnv("API_V1_PREFIX", "/api"),
			CORSOrigins: getEnvAsList("BACKEND_CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8000"}),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8000"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Store: StoreConfig{
			Backend:        strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
			UseInMemory:    getEnvAsBool("USE_IN_MEMORY_DB", false),
			MongoURL:       getEnv("MONGODB_URL", ""),
			DatabaseName:   getEnv("DATABASE_NAME", "abare_db"),
			ConnectTimeout: getEnvAsDuration("STORE_CONNECT_TIMEOUT", 5*time.Second),
		},
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "abare_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		JWT: JWTConfig{
			SigningKey:    getEnv("SECRET_KEY", "abare-development-secret-key-change-me"),
			Algorithm:     strings.ToUpper(getEnv("ALGORITHM", "HS256")),
			ExpireMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*7),
			BcryptCost:    getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		},
		Upload: UploadConfig{
			Storage:           strings.ToLower(getEnv("UPLOAD_STORAGE", UploadLocal)),
			Directory:         getEnv("UPLOAD_DIRECTORY", "static/uploads"),
			MaxSize:           getEnvAsInt64("MAX_UPLOAD_SIZE", 20*1024*1024),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", []string{"pdf", "docx", "xlsx", "csv"}),
			S3Bucket:          getEnv("S3_BUCKET", "abare"),
			S3Region:          getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMongo, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported token ALGORITHM %q", c.JWT.Algorithm)
	}
	switch c.Upload.Storage {
	case UploadLocal, UploadS3:
	default:
		return fmt.Errorf("unsupported UPLOAD_STORAGE %q", c.Upload.Storage)
	}
	if c.JWT.SigningKey == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.JWT.BcryptCost < bcrypt.MinCost || c.JWT.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Upload.MaxSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// InMemory reports whether the fallback store is used unconditionally
func (c *Config) InMemory() bool {
	return c.Store.UseInMemory || c.Store.Backend == BackendMemory
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("api_prefix", c.App.APIPrefix),
		zap.String("store_backend", c.Store.Backend),
		zap.Bool("use_in_memory_db", c.Store.UseInMemory),
		zap.String("database_name", c.Store.DatabaseName),
		zap.String("db_host", c.DB.Host),
		zap.String("jwt_algorithm", c.JWT.Algorithm),
		zap.Int("token_expire_minutes", c.JWT.ExpireMinutes),
		zap.String("upload_storage", c.Upload.Storage),
		zap.Int64("max_upload_size", c.Upload.MaxSize),
		zap.Strings("allowed_extensions", c.Upload.AllowedExtensions),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
