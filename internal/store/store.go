package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAddressForOwner retrieves an address only if it belongs to ownerKey.
// A miss (unknown id or foreign owner) is models.ErrInvalidAddress.
func (s *Store) GetAddressForOwner(ctx context.Context, addressID, ownerKey string) (*models.Address, error) {
	var addr models.Address
	err := s.db.GetContext(ctx, &addr,
		"SELECT * FROM addresses WHERE id = $1 AND owner_key = $2", addressID, ownerKey)
	if err == sql.ErrNoRows {
		return nil, models.ErrInvalidAddress
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// GetAddressesByOwner retrieves an owner's saved addresses, newest first
func (s *Store) GetAddressesByOwner(ctx context.Context, ownerKey string) ([]models.Address, error) {
	var addrs []models.Address
	err := s.db.SelectContext(ctx, &addrs,
		"SELECT * FROM addresses WHERE owner_key = $1 ORDER BY created_at DESC", ownerKey)
	return addrs, err
}

// CreateAddress persists a standalone address (outside a checkout)
func (s *Store) CreateAddress(ctx context.Context, addr *models.Address) error {
	query := `
		INSERT INTO addresses (owner_key, street, city, state, country, postal_code, phone, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, addr, query,
		addr.OwnerKey, addr.Street, addr.City, addr.State, addr.Country,
		addr.PostalCode, addr.Phone, addr.IsDefault)
}
