package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn   *sql.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type}

	// Only create tables for SQLite; postgres schemas come from migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		video_name TEXT NOT NULL,
		title TEXT NOT NULL,
		uploaded_by TEXT,
		uploaded_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		video_id TEXT,
		track_id TEXT,
		frame_number INTEGER NOT NULL,
		has_mask BOOLEAN NOT NULL,
		has_gloves BOOLEAN NOT NULL,
		has_labcoat BOOLEAN NOT NULL,
		has_glasses BOOLEAN NOT NULL,
		in_red_zone BOOLEAN NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		person_id TEXT,
		alert_type TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS spills (
		id TEXT PRIMARY KEY,
		video_id TEXT,
		frame_path TEXT NOT NULL,
		x1 INTEGER NOT NULL, y1 INTEGER NOT NULL,
		x2 INTEGER NOT NULL, y2 INTEGER NOT NULL,
		confidence REAL NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		class_name TEXT NOT NULL,
		confidence REAL NOT NULL,
		x1 INTEGER NOT NULL, y1 INTEGER NOT NULL,
		x2 INTEGER NOT NULL, y2 INTEGER NOT NULL,
		frame_path TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

// rebind rewrites ? placeholders to $n for postgres so each repository can
// carry a single query text for both backends.
func (db *DB) rebind(query string) string {
	if db.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Type() string {
	return db.dbType
}
