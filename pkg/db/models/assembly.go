package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/pkg/enums"
)

// Assembly is a buildable unit. Status is derived from its BOM lines and
// written back by the status recalculator; never set it directly.
type Assembly struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	AssemblyName    string               `gorm:"column:assembly_name;not null;uniqueIndex"`
	QuantityToBuild int                  `gorm:"column:quantity_to_build;not null;default:1"`
	Status          enums.AssemblyStatus `gorm:"column:status;not null;default:Planned"`
	Version         *string              `gorm:"column:version"`
	Description     *string              `gorm:"column:description"`
	BOMLines        []AssemblyPart       `gorm:"foreignKey:AssemblyID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
