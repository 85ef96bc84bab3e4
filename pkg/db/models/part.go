package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Part is a stocked item. Quantity is the free (unallocated) pool;
// OrderedQuantity tracks in-transit purchases and is informational only.
type Part struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PartName        string          `gorm:"column:part_name;not null;uniqueIndex"`
	Quantity        int             `gorm:"column:quantity;not null;default:0"`
	OrderedQuantity int             `gorm:"column:ordered_quantity;not null;default:0"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,4);not null;default:0"`
	Manufacturer    *string         `gorm:"column:manufacturer"`
	Package         *string         `gorm:"column:package"`
	Description     *string         `gorm:"column:description"`
	Location        *string         `gorm:"column:location"`
	Supplier        *string         `gorm:"column:supplier"`
	PurchaseURL     *string         `gorm:"column:purchase_url"`
	Memo            *string         `gorm:"column:memo"`
	CategoryLarge   *string         `gorm:"column:category_large"`
	CategoryMedium  *string         `gorm:"column:category_medium"`
	CategorySmall   *string         `gorm:"column:category_small"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
