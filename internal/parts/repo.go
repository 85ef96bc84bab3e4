package parts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Repository manages persistence for stocked parts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, part *models.Part) (*models.Part, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	FindByName(ctx context.Context, name string) (*models.Part, error)
	List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Part, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Part, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a parts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, part *models.Part) (*models.Part, error) {
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return nil, err
	}
	return part, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "part_name = ?", name).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Part, error) {
	query := r.db.WithContext(ctx).Model(&models.Part{})
	if search != "" {
		query = query.Where("part_name LIKE ?", "%"+search+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var parts []models.Part
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Part, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var parts []models.Part
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Part{})
	return res.RowsAffected, res.Error
}
