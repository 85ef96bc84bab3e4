package parts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// PartDTO is the wire shape for a stocked part.
type PartDTO struct {
	ID              uuid.UUID       `json:"id"`
	PartName        string          `json:"part_name"`
	Quantity        int             `json:"quantity"`
	OrderedQuantity int             `json:"ordered_quantity"`
	Price           decimal.Decimal `json:"price"`
	Manufacturer    *string         `json:"manufacturer,omitempty"`
	Package         *string         `json:"package,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Location        *string         `json:"location,omitempty"`
	Supplier        *string         `json:"supplier,omitempty"`
	PurchaseURL     *string         `json:"purchase_url,omitempty"`
	Memo            *string         `json:"memo,omitempty"`
	CategoryLarge   *string         `json:"category_large,omitempty"`
	CategoryMedium  *string         `json:"category_medium,omitempty"`
	CategorySmall   *string         `json:"category_small,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PartList wraps the paginated parts plus the next page cursor.
type PartList struct {
	Parts      []PartDTO `json:"parts"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// BlockedPart identifies a part whose deletion was refused because it still
// holds stock.
type BlockedPart struct {
	ID       uuid.UUID `json:"id"`
	PartName string    `json:"part_name"`
	Quantity int       `json:"quantity"`
}

func toDTO(part models.Part) PartDTO {
	return PartDTO{
		ID:              part.ID,
		PartName:        part.PartName,
		Quantity:        part.Quantity,
		OrderedQuantity: part.OrderedQuantity,
		Price:           part.Price,
		Manufacturer:    part.Manufacturer,
		Package:         part.Package,
		Description:     part.Description,
		Location:        part.Location,
		Supplier:        part.Supplier,
		PurchaseURL:     part.PurchaseURL,
		Memo:            part.Memo,
		CategoryLarge:   part.CategoryLarge,
		CategoryMedium:  part.CategoryMedium,
		CategorySmall:   part.CategorySmall,
		CreatedAt:       part.CreatedAt,
		UpdatedAt:       part.UpdatedAt,
	}
}
