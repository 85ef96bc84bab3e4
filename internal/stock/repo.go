package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// Repository performs quantity arithmetic on the parts free pool.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error)
	Increase(ctx context.Context, partID uuid.UUID, amount int) (bool, error)
	Decrease(ctx context.Context, partID uuid.UUID, amount int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// Increase adds amount to the part's free pool. Returns false when the part
// row does not exist.
func (r *repository) Increase(ctx context.Context, partID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE parts
		SET quantity = quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, partID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Decrease subtracts amount from the part's free pool. The WHERE guard makes
// the check-and-subtract atomic; returns false when the row is missing or
// holds less than amount.
func (r *repository) Decrease(ctx context.Context, partID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE parts
		SET quantity = quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity >= ?
	`, amount, partID, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
