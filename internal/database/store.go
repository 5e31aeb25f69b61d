package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookvalley/internal/config"
	"bookvalley/internal/domain"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const memoryPath = ":memory:"

// Store is the relational store behind reservations: a connection pool plus
// the dialect details the pool needs (isolation, row locks, schema).
type Store struct {
	*sql.DB
	driver string
	logger *zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

// Open connects to the configured database, applies the pool settings and
// creates the schema if it is missing.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == config.DriverSQLite && cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == config.DriverSQLite && cfg.Path == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{DB: db, driver: cfg.Driver, logger: logger}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("database initialized")
	return s, nil
}

func dataSourceName(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		params := "?_txlock=immediate&_foreign_keys=on&_busy_timeout=" + strconv.Itoa(cfg.BusyTimeoutMS)
		if cfg.Path == memoryPath {
			return "file::memory:" + params, nil
		}
		return "file:" + cfg.Path + params, nil
	case config.DriverMySQL:
		password, err := cfg.ResolvePassword()
		if err != nil {
			return "", err
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		// Report matched rather than changed rows so upserts can rely on it.
		mc.ClientFoundRows = true
		return mc.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// rowLocks reports whether SELECT ... FOR UPDATE is available. SQLite takes
// the database write lock at BEGIN instead.
func (s *Store) rowLocks() bool { return s.driver == config.DriverMySQL }

func (s *Store) txOptions() *sql.TxOptions {
	if s.driver == config.DriverMySQL {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// Driver returns the database/sql driver name.
func (s *Store) Driver() string { return s.driver }

func (s *Store) createTables(ctx context.Context) error {
	queries := sqliteSchema
	if s.driver == config.DriverMySQL {
		queries = mysqlSchema
	}
	for _, q := range queries {
		if _, err := s.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("error executing query %s: %w", q, err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ROOMS (
		roomId TEXT PRIMARY KEY,
		hotelName TEXT NOT NULL,
		roomType TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS RESERVATIONS (
		reservationId TEXT PRIMARY KEY,
		customerId TEXT NOT NULL,
		roomId TEXT NOT NULL REFERENCES ROOMS(roomId),
		checkInDate TEXT NOT NULL,
		checkOutDate TEXT NOT NULL,
		reservedTime TEXT NOT NULL,
		cancelledTime TEXT,
		CHECK (checkOutDate > checkInDate)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_hotel_type ON ROOMS(hotelName, roomType)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_room_dates ON RESERVATIONS(roomId, checkInDate, checkOutDate)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_customer ON RESERVATIONS(customerId, reservedTime)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS ROOMS (
		roomId VARCHAR(128) NOT NULL PRIMARY KEY,
		hotelName VARCHAR(255) NOT NULL,
		roomType VARCHAR(128) NOT NULL,
		INDEX idx_rooms_hotel_type (hotelName, roomType)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS RESERVATIONS (
		reservationId CHAR(36) NOT NULL PRIMARY KEY,
		customerId VARCHAR(255) NOT NULL,
		roomId VARCHAR(128) NOT NULL,
		checkInDate DATE NOT NULL,
		checkOutDate DATE NOT NULL,
		reservedTime DATETIME(6) NOT NULL,
		cancelledTime DATETIME(6) NULL,
		INDEX idx_reservations_room_dates (roomId, checkInDate, checkOutDate),
		INDEX idx_reservations_customer (customerId, reservedTime),
		CONSTRAINT fk_reservations_room FOREIGN KEY (roomId) REFERENCES ROOMS (roomId),
		CONSTRAINT chk_reservations_dates CHECK (checkOutDate > checkInDate)
	) ENGINE=InnoDB`,
}
