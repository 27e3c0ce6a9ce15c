package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafe/cafe/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrCoffeeNotFound is returned when a coffee is not found
	ErrCoffeeNotFound = errors.New("coffee not found")
)

// CoffeeRepository stores the coffee catalog
type CoffeeRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewCoffeeRepository creates a new coffee repository
func NewCoffeeRepository(database *db.DB, logger *zap.Logger) *CoffeeRepository {
	return &CoffeeRepository{
		db:  database,
		log: logger,
	}
}

// ListCoffees returns every coffee ordered by ID
func (r *CoffeeRepository) ListCoffees(ctx context.Context) ([]*db.Coffee, error) {
	var coffees []*db.Coffee
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&coffees).Error; err != nil {
		r.log.Error("Failed to list coffees", zap.Error(err))
		return nil, err
	}
	return coffees, nil
}

// GetCoffee retrieves a coffee by ID
func (r *CoffeeRepository) GetCoffee(ctx context.Context, id int64) (*db.Coffee, error) {
	var coffee db.Coffee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coffee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoffeeNotFound
		}
		r.log.Error("Failed to get coffee", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &coffee, nil
}

// CreateCoffee inserts a coffee; the database assigns its ID.
func (r *CoffeeRepository) CreateCoffee(ctx context.Context, coffee *db.Coffee) error {
	coffee.ID = 0
	if err := r.db.WithContext(ctx).Create(coffee).Error; err != nil {
		r.log.Error("Failed to create coffee", zap.String("name", coffee.Name), zap.Error(err))
		return err
	}

	r.log.Info("Coffee created", zap.Int64("id", coffee.ID), zap.String("name", coffee.Name))
	return nil
}

// DeleteCoffee removes a coffee by ID
func (r *CoffeeRepository) DeleteCoffee(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Coffee{})
	if result.Error != nil {
		r.log.Error("Failed to delete coffee", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCoffeeNotFound
	}

	r.log.Info("Coffee deleted", zap.Int64("id", id))
	return nil
}

// CountCoffees returns the catalog size for metrics
func (r *CoffeeRepository) CountCoffees(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&db.Coffee{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count coffees: %w", err)
	}
	return total, nil
}
