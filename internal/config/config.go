package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bookvalley/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Logging     LoggingConfig     `yaml:"logging"`
	API         APIConfig         `yaml:"api"`
	Reservation ReservationConfig `yaml:"reservation"`
	Events      EventsConfig      `yaml:"events"`
	Rooms       []models.Room     `yaml:"rooms"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite file; ":memory:" for a private in-memory database.
	Path string `yaml:"path"`

	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"`
	Name         string `yaml:"name"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	BusyTimeoutMS   int           `yaml:"busy_timeout_ms"`
}

// ResolvePassword returns Password, or the trimmed contents of PasswordFile
// when set.
func (c DatabaseConfig) ResolvePassword() (string, error) {
	if c.PasswordFile == "" {
		return c.Password, nil
	}
	data, err := os.ReadFile(c.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("read database password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	// QueryTables lists the tables the generic query endpoint may read.
	QueryTables []string `yaml:"query_tables"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type ReservationConfig struct {
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	Retry            RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type EventsConfig struct {
	AMQPURL string      `yaml:"amqp_url"`
	Queue   string      `yaml:"queue"`
	Retry   RetryConfig `yaml:"retry"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite3")
		}
	case DriverMySQL:
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database host and name are required for mysql")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.API.RateLimit.Requests < 0 {
		return errors.New("api rate limit must not be negative")
	}

	return ValidateRooms(c.Rooms)
}

// ValidateRooms checks the seed inventory: ids unique and of the form
// <prefix>-<unit>, hotel and type set.
func ValidateRooms(rooms []models.Room) error {
	ids := make(map[string]bool)
	for _, room := range rooms {
		idx := strings.LastIndex(room.RoomID, "-")
		if idx <= 0 || idx == len(room.RoomID)-1 {
			return fmt.Errorf("room id %q must look like <prefix>-<unit>", room.RoomID)
		}
		if room.HotelName == "" || room.RoomType == "" {
			return fmt.Errorf("room %q needs hotel_name and room_type", room.RoomID)
		}
		if ids[room.RoomID] {
			return fmt.Errorf("duplicate room id found: %s", room.RoomID)
		}
		ids[room.RoomID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bookvalley"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverMySQL && c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.RateLimit.Requests == 0 {
		c.API.RateLimit.Requests = models.RateLimitRequests
	}
	if c.API.RateLimit.Window == 0 {
		c.API.RateLimit.Window = models.RateLimitWindow * time.Second
	}
	if len(c.API.QueryTables) == 0 {
		c.API.QueryTables = []string{models.TableRooms}
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Reservation.OperationTimeout == 0 {
		c.Reservation.OperationTimeout = models.DefaultOperationTimeout * time.Second
	}
	c.Reservation.Retry.applyDefaults(3, 20*time.Millisecond, 500*time.Millisecond)

	if c.Events.Queue == "" {
		c.Events.Queue = "bookvalley.reservations"
	}
	c.Events.Retry.applyDefaults(5, time.Second, time.Minute)
}

func (r *RetryConfig) applyDefaults(retries int, initial, max time.Duration) {
	if r.MaxRetries == 0 {
		r.MaxRetries = retries
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = initial
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = max
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = 2
	}
}
