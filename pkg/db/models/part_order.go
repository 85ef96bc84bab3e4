package models

import (
	"time"

	"github.com/google/uuid"
)

// PartOrder is a pending purchase for a part. Orders for the same
// (part, order date) merge by summing quantity instead of duplicating rows;
// fulfilling an order moves its quantity into the part's free pool and
// deletes the row.
type PartOrder struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PartID          uuid.UUID `gorm:"column:part_id;type:uuid;not null;uniqueIndex:idx_part_order_date"`
	OrderDate       string    `gorm:"column:order_date;not null;uniqueIndex:idx_part_order_date"`
	QuantityOrdered int       `gorm:"column:quantity_ordered;not null"`
	Part            *Part     `gorm:"foreignKey:PartID"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
