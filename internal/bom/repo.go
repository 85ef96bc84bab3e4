package bom

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// Repository manages persistence for BOM lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAssembly(ctx context.Context, assemblyID uuid.UUID) (*models.Assembly, error)
	FindLine(ctx context.Context, assemblyID, partID uuid.UUID) (*models.AssemblyPart, error)
	ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]models.AssemblyPart, error)
	CreateLine(ctx context.Context, line *models.AssemblyPart) error
	UpdateLine(ctx context.Context, lineID uuid.UUID, updates map[string]any) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a BOM repository bound to the provided DB.
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

func (r *repository) ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]models.AssemblyPart, error) {
	var lines []models.AssemblyPart
	err := r.db.WithContext(ctx).
		Preload("Part").
		Where("assembly_id = ?", assemblyID).
		Order("created_at ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.AssemblyPart) error {
	return r.db.WithContext(ctx).Create(line).Error
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
