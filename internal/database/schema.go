package database

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the invitations and tickets tables when missing.
// Column names mirror the JSON field names of the flat-file driver.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS invitations (
	id          CHAR(36)     NOT NULL PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	email       VARCHAR(255) NOT NULL,
	created_at  DATETIME(6)  NOT NULL,
	scanned     TINYINT(1)   NOT NULL DEFAULT 0,
	scanned_at  DATETIME(6)  NULL,
	seq         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT UNIQUE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`)
	if err != nil {
		return fmt.Errorf("create invitations table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tickets (
	id          CHAR(36)     NOT NULL PRIMARY KEY,
	number      INT UNSIGNED NOT NULL UNIQUE,
	sold        TINYINT(1)   NOT NULL DEFAULT 0,
	sold_at     DATETIME(6)  NULL,
	buyer_name  VARCHAR(255) NULL,
	buyer_email VARCHAR(255) NULL,
	scanned     TINYINT(1)   NOT NULL DEFAULT 0,
	scanned_at  DATETIME(6)  NULL,
	created_at  DATETIME(6)  NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`)
	if err != nil {
		return fmt.Errorf("create tickets table: %w", err)
	}
	return nil
}
