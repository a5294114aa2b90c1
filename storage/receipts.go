package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Al10s/pupperteer-test/config"
	"github.com/Al10s/pupperteer-test/models"
)

// ReceiptStore persists purchase receipts into PostgreSQL as an audit
// trail. The run never reads them back; every process start begins its
// accounting from scratch.
type ReceiptStore struct {
	db *sql.DB
}

func NewReceiptStore(cfg config.Config) (*ReceiptStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &ReceiptStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *ReceiptStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS receipts (
			id           BIGSERIAL PRIMARY KEY,
			author       TEXT NOT NULL,
			unit_price   NUMERIC(10, 2) NOT NULL,
			quantity     INTEGER NOT NULL,
			purchased_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure receipts schema: %w", err)
	}
	return nil
}

// SaveReceipt inserts one checkout receipt.
func (s *ReceiptStore) SaveReceipt(ctx context.Context, r models.Receipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (author, unit_price, quantity, purchased_at)
		VALUES ($1, $2, $3, $4)
	`, r.Author, r.UnitPrice, r.Quantity, r.PurchasedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *ReceiptStore) Close() error {
	return s.db.Close()
}
