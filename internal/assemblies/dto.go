package assemblies

import (
	"time"

	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
)

// AssemblyDTO is the wire shape for an assembly.
type AssemblyDTO struct {
	ID              uuid.UUID            `json:"id"`
	AssemblyName    string               `json:"assembly_name"`
	QuantityToBuild int                  `json:"quantity_to_build"`
	Status          enums.AssemblyStatus `json:"status"`
	Version         *string              `json:"version,omitempty"`
	Description     *string              `json:"description,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// AssemblyList wraps paginated assemblies plus the next page cursor.
type AssemblyList struct {
	Assemblies []AssemblyDTO `json:"assemblies"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// DetailLineDTO is a BOM line enriched with part and alias-group fields for
// the assembly detail view.
type DetailLineDTO struct {
	LineID            uuid.UUID  `json:"line_id"`
	PartID            uuid.UUID  `json:"part_id"`
	PartName          string     `json:"part_name"`
	Package           *string    `json:"package,omitempty"`
	Reference         string     `json:"reference"`
	QuantityPer       int        `json:"quantity_per"`
	AllocatedQuantity int        `json:"allocated_quantity"`
	RequiredQuantity  int        `json:"required_quantity"`
	FreeQuantity      int        `json:"free_quantity"`
	AliasID           *uuid.UUID `json:"alias_id,omitempty"`
	AliasName         *string    `json:"alias_name,omitempty"`
}

// AssemblyDetail is the full detail view: the assembly plus its BOM lines.
type AssemblyDetail struct {
	AssemblyDTO
	Lines []DetailLineDTO `json:"lines"`
}

// LowStockDTO reports an assembly whose allocation trails its requirement.
type LowStockDTO struct {
	ID                uuid.UUID `json:"id"`
	AssemblyName      string    `json:"assembly_name"`
	AllocationPercent float64   `json:"allocation_percent"`
}

func toDTO(assembly models.Assembly) AssemblyDTO {
	return AssemblyDTO{
		ID:              assembly.ID,
		AssemblyName:    assembly.AssemblyName,
		QuantityToBuild: assembly.QuantityToBuild,
		Status:          assembly.Status,
		Version:         assembly.Version,
		Description:     assembly.Description,
		CreatedAt:       assembly.CreatedAt,
		UpdatedAt:       assembly.UpdatedAt,
	}
}

func toDetailLine(row DetailLineRow, quantityToBuild int) DetailLineDTO {
	line := DetailLineDTO{
		LineID:            row.LineID,
		PartID:            row.PartID,
		PartName:          row.PartName,
		Package:           row.Package,
		Reference:         row.Reference,
		QuantityPer:       row.QuantityPer,
		AllocatedQuantity: row.AllocatedQuantity,
		RequiredQuantity:  row.QuantityPer * quantityToBuild,
		FreeQuantity:      row.Quantity,
		AliasName:         row.AliasName,
	}
	if row.AliasID.Valid {
		id := row.AliasID.UUID
		line.AliasID = &id
	}
	return line
}
