package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/stock-hold/internal/core/domain"
)

// MySQLHoldRepository is the durable hold store. The status compare-and-set
// is a conditional UPDATE: whoever flips the row out of `hold` first wins,
// and everyone else sees zero affected rows.
//
// Expected schema:
//
//	CREATE TABLE holds (
//	  local_order_id    VARCHAR(36) PRIMARY KEY,
//	  external_ref      VARCHAR(64) NOT NULL DEFAULT '',
//	  reservation_token VARCHAR(36) NOT NULL,
//	  amount_paise      BIGINT NOT NULL,
//	  address           JSON NOT NULL,
//	  status            VARCHAR(16) NOT NULL,
//	  created_at        DATETIME(3) NOT NULL,
//	  expires_at        DATETIME(3) NOT NULL,
//	  updated_at        DATETIME(3) NOT NULL,
//	  KEY idx_status_expires (status, expires_at)
//	);
//	CREATE TABLE hold_items (
//	  local_order_id VARCHAR(36) NOT NULL,
//	  product_id     VARCHAR(64) NOT NULL,
//	  quantity       INT NOT NULL,
//	  PRIMARY KEY (local_order_id, product_id)
//	);
type MySQLHoldRepository struct {
	db *sql.DB
}

func NewMySQLHoldRepository(db *sql.DB) *MySQLHoldRepository {
	return &MySQLHoldRepository{db: db}
}

func (m *MySQLHoldRepository) Create(ctx context.Context, hold *domain.Hold) error {
	address, err := json.Marshal(hold.Address)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO holds (local_order_id, external_ref, reservation_token, amount_paise,
			address, status, created_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		hold.LocalOrderID, hold.ExternalOrderRef, hold.ReservationToken, hold.AmountPaise,
		address, hold.Status, hold.CreatedAt, hold.ExpiresAt, hold.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}

	for _, item := range hold.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO hold_items (local_order_id, product_id, quantity)
			VALUES (?, ?, ?)`,
			hold.LocalOrderID, item.ProductID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert hold item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLHoldRepository) Get(ctx context.Context, localOrderID string) (*domain.Hold, error) {
	var hold domain.Hold
	var address []byte
	err := m.db.QueryRowContext(ctx, `
		SELECT local_order_id, external_ref, reservation_token, amount_paise,
			address, status, created_at, expires_at
		FROM holds WHERE local_order_id = ?`, localOrderID,
	).Scan(&hold.LocalOrderID, &hold.ExternalOrderRef, &hold.ReservationToken,
		&hold.AmountPaise, &address, &hold.Status, &hold.CreatedAt, &hold.ExpiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query hold: %w", err)
	}

	if err := json.Unmarshal(address, &hold.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	if hold.Items, err = m.loadItems(ctx, localOrderID); err != nil {
		return nil, err
	}
	return &hold, nil
}

func (m *MySQLHoldRepository) Transition(ctx context.Context, localOrderID string, from, to domain.HoldStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE holds SET status = ?, updated_at = NOW(3)
		WHERE local_order_id = ? AND status = ?`,
		to, localOrderID, from,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var current string
		err := m.db.QueryRowContext(ctx, `SELECT status FROM holds WHERE local_order_id = ?`,
			localOrderID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrHoldNotFound
		}
		return domain.ErrStatusConflict
	}
	return nil
}

func (m *MySQLHoldRepository) SetExternalRef(ctx context.Context, localOrderID, externalRef string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE holds SET external_ref = ?, updated_at = NOW(3)
		WHERE local_order_id = ?`,
		externalRef, localOrderID,
	)
	if err != nil {
		return fmt.Errorf("update external ref: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (m *MySQLHoldRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.Hold, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT local_order_id, external_ref, reservation_token, amount_paise,
			address, status, created_at, expires_at
		FROM holds WHERE status = ? AND expires_at <= ?`,
		domain.HoldStatusHold, now,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired holds: %w", err)
	}
	defer rows.Close()

	var expired []*domain.Hold
	for rows.Next() {
		var hold domain.Hold
		var address []byte
		if err := rows.Scan(&hold.LocalOrderID, &hold.ExternalOrderRef, &hold.ReservationToken,
			&hold.AmountPaise, &address, &hold.Status, &hold.CreatedAt, &hold.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		if err := json.Unmarshal(address, &hold.Address); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		expired = append(expired, &hold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired holds: %w", err)
	}

	for _, hold := range expired {
		if hold.Items, err = m.loadItems(ctx, hold.LocalOrderID); err != nil {
			return nil, err
		}
	}
	return expired, nil
}

func (m *MySQLHoldRepository) loadItems(ctx context.Context, localOrderID string) ([]domain.LineItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity FROM hold_items
		WHERE local_order_id = ? ORDER BY product_id`, localOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query hold items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan hold item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MySQLOrderFinalizer converts a committed hold into a permanent order row.
//
//	CREATE TABLE orders (
//	  public_order_id VARCHAR(16) PRIMARY KEY,
//	  local_order_id  VARCHAR(36) NOT NULL,
//	  amount_paise    BIGINT NOT NULL,
//	  created_at      DATETIME(3) NOT NULL
//	);
type MySQLOrderFinalizer struct {
	db *sql.DB
}

func NewMySQLOrderFinalizer(db *sql.DB) *MySQLOrderFinalizer {
	return &MySQLOrderFinalizer{db: db}
}

func (m *MySQLOrderFinalizer) Finalize(ctx context.Context, hold *domain.Hold) (string, error) {
	publicID := newPublicOrderID()
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (public_order_id, local_order_id, amount_paise, created_at)
		VALUES (?, ?, ?, NOW(3))`,
		publicID, hold.LocalOrderID, hold.AmountPaise,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return publicID, nil
}
