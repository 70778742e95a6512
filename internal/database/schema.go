package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stands (
        id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        name              VARCHAR(100)    NOT NULL,
        location          VARCHAR(255)    NOT NULL,
        capacity          INT UNSIGNED    NOT NULL,
        hourly_rate       DECIMAL(10,2)   NOT NULL DEFAULT 0,
        currency          ENUM('INR','USD','EUR','GBP','NPR') NOT NULL DEFAULT 'INR',
        current_occupancy INT UNSIGNED    NOT NULL DEFAULT 0,
        status            ENUM('active','inactive','maintenance') NOT NULL DEFAULT 'active',
        admin_id          BIGINT UNSIGNED NULL,
        created_at        DATETIME(3)     NOT NULL,
        updated_at        DATETIME(3)     NOT NULL,
        PRIMARY KEY (id),
        UNIQUE KEY uq_stands_name (name),
        KEY idx_stands_admin (admin_id),
        CONSTRAINT chk_stands_capacity CHECK (capacity >= 1),
        CONSTRAINT chk_stands_occupancy CHECK (current_occupancy <= capacity)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
        id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        vehicle_number   VARCHAR(20)     NOT NULL,
        vehicle_type     ENUM('car','motorcycle','truck','bus') NOT NULL DEFAULT 'car',
        customer_name    VARCHAR(100)    NOT NULL,
        customer_phone   VARCHAR(20)     NULL,
        stand_id         BIGINT UNSIGNED NOT NULL,
        hourly_rate      DECIMAL(10,2)   NOT NULL,
        entry_time       DATETIME(3)     NOT NULL,
        exit_time        DATETIME(3)     NULL,
        status           ENUM('active','completed','cancelled') NOT NULL DEFAULT 'active',
        payment_status   ENUM('pending','paid','failed') NOT NULL DEFAULT 'pending',
        amount           DECIMAL(12,2)   NULL,
        duration_minutes BIGINT          NULL,
        cancelled_at     DATETIME(3)     NULL,
        notes            VARCHAR(500)    NULL,
        created_by       BIGINT UNSIGNED NOT NULL,
        created_at       DATETIME(3)     NOT NULL,
        updated_at       DATETIME(3)     NOT NULL,
        PRIMARY KEY (id),
        KEY idx_sessions_stand_status (stand_id, status, entry_time),
        KEY idx_sessions_vehicle (stand_id, vehicle_number, status),
        CONSTRAINT fk_sessions_stand FOREIGN KEY (stand_id) REFERENCES stands (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema step %d: %w", i+1, err)
		}
	}
	return nil
}
