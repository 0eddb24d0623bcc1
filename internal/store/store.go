package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bins-status-backend/internal/model"
)

// ErrAddressExists is returned when the UPRN is already configured.
var ErrAddressExists = errors.New("address already configured")

// Store defines the interface for configuration-state persistence. Only
// setup state lives here; fetched collection data stays in memory with its
// coordinator.
type Store interface {
	CreateAddress(ctx context.Context, addr *model.Address) error
	ListAddresses(ctx context.Context) ([]model.Address, error)
	GetAddress(ctx context.Context, id int64) (*model.Address, error)
	DeleteAddress(ctx context.Context, id int64) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// CreateAddress persists a newly configured address. The UPRN is unique: a
// property can only be configured once.
func (s *gormStore) CreateAddress(ctx context.Context, addr *model.Address) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Address
		err := tx.Where("uprn = ?", addr.UPRN).First(&existing).Error
		if err == nil {
			return ErrAddressExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for existing address: %w", err)
		}
		if err := tx.Create(addr).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		return nil
	})
}

// ListAddresses returns every configured address.
func (s *gormStore) ListAddresses(ctx context.Context) ([]model.Address, error) {
	var addresses []model.Address
	if err := s.db.WithContext(ctx).Order("id").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress returns one configured address, or gorm.ErrRecordNotFound.
func (s *gormStore) GetAddress(ctx context.Context, id int64) (*model.Address, error) {
	var addr model.Address
	if err := s.db.WithContext(ctx).First(&addr, id).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// DeleteAddress removes a configured address and its subscription mappings.
func (s *gormStore) DeleteAddress(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var addr model.Address
		if err := tx.First(&addr, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&addr).Association("Subscriptions").Clear(); err != nil {
			return fmt.Errorf("failed to clear subscription mappings: %w", err)
		}
		if err := tx.Delete(&addr).Error; err != nil {
			return fmt.Errorf("failed to delete address: %w", err)
		}
		return nil
	})
}

// DB exposes the underlying gorm handle for handlers that query directly.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
