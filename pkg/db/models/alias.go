package models

import (
	"time"

	"github.com/google/uuid"
)

// Alias is a named group of interchangeable parts.
type Alias struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	AliasName string      `gorm:"column:alias_name;not null;uniqueIndex"`
	Links     []AliasLink `gorm:"foreignKey:AliasID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
}

// AliasLink attaches a part to an alias group. The unique index on part_id
// enforces at-most-one group per part.
type AliasLink struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AliasID   uuid.UUID `gorm:"column:alias_id;type:uuid;not null"`
	PartID    uuid.UUID `gorm:"column:part_id;type:uuid;not null;uniqueIndex"`
	Part      *Part     `gorm:"foreignKey:PartID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
