package orders

import (
	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// OrderDTO is the wire shape for a pending part order.
type OrderDTO struct {
	ID              uuid.UUID `json:"id"`
	PartID          uuid.UUID `json:"part_id"`
	OrderDate       string    `json:"order_date"`
	QuantityOrdered int       `json:"quantity_ordered"`
}

// RecentOrderDTO adds the part name for the dashboard feed.
type RecentOrderDTO struct {
	ID              uuid.UUID `json:"id"`
	PartID          uuid.UUID `json:"part_id"`
	PartName        string    `json:"part_name"`
	OrderDate       string    `json:"order_date"`
	QuantityOrdered int       `json:"quantity_ordered"`
}

// FulfillResult reports the stock movement a fulfilled order produced.
type FulfillResult struct {
	OrderID  uuid.UUID `json:"order_id"`
	PartID   uuid.UUID `json:"part_id"`
	Quantity int       `json:"quantity"`
}

func toDTO(order models.PartOrder) OrderDTO {
	return OrderDTO{
		ID:              order.ID,
		PartID:          order.PartID,
		OrderDate:       order.OrderDate,
		QuantityOrdered: order.QuantityOrdered,
	}
}
