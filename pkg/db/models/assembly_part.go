package models

import (
	"time"

	"github.com/google/uuid"
)

// AssemblyPart is a BOM line: "assembly requires QuantityPer of part per
// built unit". AllocatedQuantity counts units already moved out of the
// part's free pool for this line; the engine keeps
// 0 <= AllocatedQuantity <= QuantityPer * Assembly.QuantityToBuild.
type AssemblyPart struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AssemblyID        uuid.UUID `gorm:"column:assembly_id;type:uuid;not null;uniqueIndex:idx_assembly_part"`
	PartID            uuid.UUID `gorm:"column:part_id;type:uuid;not null;uniqueIndex:idx_assembly_part"`
	QuantityPer       int       `gorm:"column:quantity_per;not null;default:0"`
	AllocatedQuantity int       `gorm:"column:allocated_quantity;not null;default:0"`
	Reference         string    `gorm:"column:reference;not null;default:''"`
	Part              *Part     `gorm:"foreignKey:PartID"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
