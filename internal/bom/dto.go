package bom

import (
	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// BOMLineDTO is the wire shape for a single BOM line joined to its part.
type BOMLineDTO struct {
	ID                uuid.UUID `json:"id"`
	AssemblyID        uuid.UUID `json:"assembly_id"`
	PartID            uuid.UUID `json:"part_id"`
	PartName          string    `json:"part_name"`
	QuantityPer       int       `json:"quantity_per"`
	AllocatedQuantity int       `json:"allocated_quantity"`
	Reference         string    `json:"reference"`
	RequiredQuantity  int       `json:"required_quantity"`
	FreeQuantity      int       `json:"free_quantity"`
}

func toDTO(line models.AssemblyPart, quantityToBuild int) BOMLineDTO {
	dto := BOMLineDTO{
		ID:                line.ID,
		AssemblyID:        line.AssemblyID,
		PartID:            line.PartID,
		QuantityPer:       line.QuantityPer,
		AllocatedQuantity: line.AllocatedQuantity,
		Reference:         line.Reference,
		RequiredQuantity:  line.QuantityPer * quantityToBuild,
	}
	if line.Part != nil {
		dto.PartName = line.Part.PartName
		dto.FreeQuantity = line.Part.Quantity
	}
	return dto
}
