package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Relational drivers.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MySQLConfig holds the MYSQL_* connection settings.
type MySQLConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
}

// DSN renders the settings as a go-sql-driver DSN.
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Database
	return cfg.FormatDSN()
}

// RelationalConfig selects and configures the relational source.
type RelationalConfig struct {
	Driver      string      `yaml:"driver" validate:"oneof=mysql sqlite postgres"`
	MySQL       MySQLConfig `yaml:"mysql" validate:"-"`
	SQLitePath  string      `yaml:"sqlite_database" validate:"required_if=Driver sqlite"`
	DatabaseURL string      `yaml:"database_url" validate:"required_if=Driver postgres"`
}

// MongoConfig locates the timetable collection.
type MongoConfig struct {
	URI        string `yaml:"uri" validate:"required"`
	Database   string `yaml:"database" validate:"required"`
	Collection string `yaml:"collection" validate:"required"`
}

// Config holds all configuration for the API and the batch jobs.
type Config struct {
	// HTTP
	Port               int      `yaml:"port" validate:"gt=0,lte=65535"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"min=1"`
	StaticDir          string   `yaml:"static_dir"`
	RequestTimeoutSecs int      `yaml:"request_timeout_seconds" validate:"gt=0"`

	// Logging
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	// Stores
	Relational RelationalConfig `yaml:"relational"`
	Mongo      MongoConfig      `yaml:"mongo"`

	// Batch jobs
	SnapshotDir         string `yaml:"snapshot_dir" validate:"required"`
	SnapshotMaxAgeHours int    `yaml:"snapshot_max_age_hours" validate:"gt=0"`
	ChunkSize           int    `yaml:"chunk_size" validate:"gt=0"`
}

// RequestTimeout returns the per-request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// SnapshotMaxAge is how old a snapshot may get before it is regenerated.
func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.SnapshotMaxAgeHours) * time.Hour
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:               5050,
		CORSAllowedOrigins: []string{"*"},
		RequestTimeoutSecs: 30,
		LogLevel:           "info",
		LogFormat:          "json",
		Relational: RelationalConfig{
			Driver: DriverMySQL,
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Database: "transit",
			},
			SQLitePath: "data/transit.db",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "transit",
			Collection: "stop_timetables",
		},
		SnapshotDir:         "data",
		SnapshotMaxAgeHours: 7 * 24,
		ChunkSize:           100000,
	}
}

// Load reads .env and .env.local (the latter overriding), then builds the
// configuration from defaults, the optional CONFIG_FILE and environment
// variables, in that order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
	return FromEnv()
}

// FromEnv builds and validates the configuration without touching .env files.
func FromEnv() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}
	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)
	cfg.RequestTimeoutSecs = getEnvInt("REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeoutSecs)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))

	cfg.Relational.Driver = strings.ToLower(getEnv("RELATIONAL_DRIVER", cfg.Relational.Driver))
	cfg.Relational.MySQL.Host = getEnv("MYSQL_HOST", cfg.Relational.MySQL.Host)
	cfg.Relational.MySQL.Port = getEnvInt("MYSQL_PORT", cfg.Relational.MySQL.Port)
	cfg.Relational.MySQL.User = getEnv("MYSQL_USER", cfg.Relational.MySQL.User)
	cfg.Relational.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.Relational.MySQL.Password)
	cfg.Relational.MySQL.Database = getEnv("MYSQL_DB", cfg.Relational.MySQL.Database)
	cfg.Relational.SQLitePath = getEnv("SQLITE_DATABASE", cfg.Relational.SQLitePath)
	cfg.Relational.DatabaseURL = getEnv("DATABASE_URL", cfg.Relational.DatabaseURL)

	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DB", cfg.Mongo.Database)
	cfg.Mongo.Collection = getEnv("MONGO_COLLECTION", cfg.Mongo.Collection)

	cfg.SnapshotDir = getEnv("SNAPSHOT_DIR", cfg.SnapshotDir)
	cfg.SnapshotMaxAgeHours = getEnvInt("SNAPSHOT_MAX_AGE_HOURS", cfg.SnapshotMaxAgeHours)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.ChunkSize)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. MySQL settings are only checked
// when MySQL is the selected driver.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Relational.Driver == DriverMySQL {
		if err := v.Struct(c.Relational.MySQL); err != nil {
			return fmt.Errorf("invalid mysql configuration: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
