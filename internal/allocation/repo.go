package allocation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// Repository manages the allocation columns of BOM lines and the derived
// assembly status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAssembly(ctx context.Context, assemblyID uuid.UUID) (*models.Assembly, error)
	FindLine(ctx context.Context, assemblyID, partID uuid.UUID) (*models.AssemblyPart, error)
	IncrementAllocated(ctx context.Context, lineID uuid.UUID, amount, maxTotal int) (bool, error)
	DecrementAllocated(ctx context.Context, lineID uuid.UUID, amount int) (bool, error)
	UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	CreateLine(ctx context.Context, line *models.AssemblyPart) error
	Totals(ctx context.Context, assemblyID uuid.UUID) (AllocationTotals, error)
	UpdateAssemblyStatus(ctx context.Context, assemblyID uuid.UUID, status string) error
}

// AllocationTotals aggregates the per-line sums driving status derivation.
type AllocationTotals struct {
	LineCount      int64
	SumQuantityPer int
	SumAllocated   int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an allocation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAssembly(ctx context.Context, assemblyID uuid.UUID) (*models.Assembly, error) {
	var assembly models.Assembly
	if err := r.db.WithContext(ctx).First(&assembly, "id = ?", assemblyID).Error; err != nil {
		return nil, err
	}
	return &assembly, nil
}

func (r *repository) FindLine(ctx context.Context, assemblyID, partID uuid.UUID) (*models.AssemblyPart, error) {
	var line models.AssemblyPart
	err := r.db.WithContext(ctx).
		Where("assembly_id = ? AND part_id = ?", assemblyID, partID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// IncrementAllocated adds amount to the line's allocated count. The WHERE
// guard keeps allocated within maxTotal; returns false when the cap would be
// exceeded.
func (r *repository) IncrementAllocated(ctx context.Context, lineID uuid.UUID, amount, maxTotal int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE assembly_parts
		SET allocated_quantity = allocated_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND allocated_quantity + ? <= ?
	`, amount, lineID, amount, maxTotal)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DecrementAllocated subtracts amount from the line's allocated count,
// refusing to go below zero.
func (r *repository) DecrementAllocated(ctx context.Context, lineID uuid.UUID, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE assembly_parts
		SET allocated_quantity = allocated_quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND allocated_quantity >= ?
	`, amount, lineID, amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AssemblyPart{}).
		Where("id = ?", lineID).
		Updates(updates).Error
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AssemblyPart{}, "id = ?", lineID).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.AssemblyPart) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) Totals(ctx context.Context, assemblyID uuid.UUID) (AllocationTotals, error) {
	var row struct {
		LineCount      int64
		SumQuantityPer int
		SumAllocated   int
	}
	err := r.db.WithContext(ctx).
		Model(&models.AssemblyPart{}).
		Select(`COUNT(*) AS line_count,
			COALESCE(SUM(quantity_per), 0) AS sum_quantity_per,
			COALESCE(SUM(allocated_quantity), 0) AS sum_allocated`).
		Where("assembly_id = ?", assemblyID).
		Scan(&row).Error
	if err != nil {
		return AllocationTotals{}, err
	}
	return AllocationTotals{
		LineCount:      row.LineCount,
		SumQuantityPer: row.SumQuantityPer,
		SumAllocated:   row.SumAllocated,
	}, nil
}

func (r *repository) UpdateAssemblyStatus(ctx context.Context, assemblyID uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Assembly{}).
		Where("id = ?", assemblyID).
		Update("status", status).Error
}
