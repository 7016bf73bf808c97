package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('CLUB','FISHER') NOT NULL,
		name VARCHAR(120) NOT NULL DEFAULT '',
		phone VARCHAR(40) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS device_tokens (
		user_id BIGINT UNSIGNED NOT NULL,
		token VARCHAR(512) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, token(191)),
		CONSTRAINT fk_device_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS clubs (
		id BIGINT UNSIGNED PRIMARY KEY,
		name VARCHAR(160) NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(40) NOT NULL DEFAULT '',
		logo_url VARCHAR(512) NOT NULL DEFAULT '',
		average_rating DECIMAL(3,1) NOT NULL DEFAULT 0,
		rating_count INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_club_user FOREIGN KEY (id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS boat_types (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		club_id BIGINT UNSIGNED NOT NULL,
		kind VARCHAR(60) NOT NULL,
		capacity INT NOT NULL,
		unit_count INT NOT NULL DEFAULT 0,
		price_cents BIGINT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_boat_type (club_id, kind, capacity),
		CONSTRAINT chk_boat_capacity CHECK (capacity >= 1),
		CONSTRAINT chk_boat_count CHECK (unit_count >= 0),
		CONSTRAINT chk_boat_price CHECK (price_cents >= 0),
		CONSTRAINT fk_boat_club FOREIGN KEY (club_id) REFERENCES clubs(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bait_offers (
		club_id BIGINT UNSIGNED PRIMARY KEY,
		available TINYINT(1) NOT NULL DEFAULT 1,
		price_cents BIGINT NOT NULL DEFAULT 0,
		CONSTRAINT fk_bait_club FOREIGN KEY (club_id) REFERENCES clubs(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		club_id BIGINT UNSIGNED NOT NULL,
		club_name VARCHAR(160) NOT NULL,
		fisher_id BIGINT UNSIGNED NOT NULL,
		contact_name VARCHAR(120) NOT NULL DEFAULT '',
		contact_email VARCHAR(255) NOT NULL DEFAULT '',
		contact_phone VARCHAR(40) NOT NULL DEFAULT '',
		boat_kind VARCHAR(60) NOT NULL,
		capacity INT NOT NULL,
		party_size INT NOT NULL,
		bait_packs INT NOT NULL DEFAULT 0,
		date DATE NULL,
		state ENUM('PENDING','CONFIRMED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		message TEXT NULL,
		boat_price_cents BIGINT NOT NULL,
		bait_price_cents BIGINT NOT NULL,
		total_cents BIGINT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_res_club_date (club_id, date, state),
		KEY idx_res_fisher (fisher_id),
		CONSTRAINT fk_res_club FOREIGN KEY (club_id) REFERENCES clubs(id),
		CONSTRAINT fk_res_fisher FOREIGN KEY (fisher_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservation_history (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		action VARCHAR(40) NOT NULL,
		actor_role VARCHAR(10) NOT NULL,
		actor_id BIGINT UNSIGNED NOT NULL,
		from_state VARCHAR(10) NOT NULL DEFAULT '',
		to_state VARCHAR(10) NOT NULL,
		details JSON NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_hist_res (reservation_id),
		CONSTRAINT fk_hist_res FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ratings (
		fisher_id BIGINT UNSIGNED NOT NULL,
		club_id BIGINT UNSIGNED NOT NULL,
		score TINYINT NOT NULL,
		comment TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (fisher_id, club_id),
		KEY idx_rating_club (club_id),
		CONSTRAINT chk_rating_score CHECK (score BETWEEN 1 AND 5),
		CONSTRAINT fk_rating_club FOREIGN KEY (club_id) REFERENCES clubs(id) ON DELETE CASCADE,
		CONSTRAINT fk_rating_fisher FOREIGN KEY (fisher_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		target_role VARCHAR(10) NOT NULL,
		target_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(160) NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(40) NOT NULL,
		reservation_id BIGINT UNSIGNED NOT NULL DEFAULT 0,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_notif_target (target_role, target_id, is_read)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		event_id CHAR(36) NOT NULL UNIQUE,
		topic VARCHAR(120) NOT NULL,
		payload JSON NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		published_at DATETIME(3) NULL,
		KEY idx_outbox_pending (published_at, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// RunMigrations creates missing tables.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
