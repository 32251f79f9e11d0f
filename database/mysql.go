package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	MYSQL_CONN_MAX_LIFETIME = 5 * time.Minute
	MYSQL_MAX_OPEN_CONNS    = 10
	MYSQL_MAX_IDLE_CONNS    = 10
)

// TenantDirectory answers whether a company is known and active.
type TenantDirectory interface {
	Exists(ctx context.Context, companyID string) (bool, error)
}

// MySQLDirectory reads the legacy companies table.
type MySQLDirectory struct {
	db *sql.DB
}

func OpenMySQLDirectory(ctx context.Context, uri string) (*MySQLDirectory, error) {
	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("[MySQL] open: %w", err)
	}

	db.SetConnMaxLifetime(MYSQL_CONN_MAX_LIFETIME)
	db.SetMaxOpenConns(MYSQL_MAX_OPEN_CONNS)
	db.SetMaxIdleConns(MYSQL_MAX_IDLE_CONNS)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("[MySQL] ping: %w", err)
	}

	return NewMySQLDirectory(db), nil
}

func NewMySQLDirectory(db *sql.DB) *MySQLDirectory {
	return &MySQLDirectory{db: db}
}

func (d *MySQLDirectory) Exists(ctx context.Context, companyID string) (bool, error) {
	var found int
	err := d.db.QueryRowContext(ctx,
		"SELECT 1 FROM companies WHERE company_id = ? AND active = 1 LIMIT 1",
		companyID,
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("[MySQL] lookup company %s: %w", companyID, err)
	}
	return true, nil
}

func (d *MySQLDirectory) Close() error {
	return d.db.Close()
}
