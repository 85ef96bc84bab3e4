package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// ProjectDTO is the wire shape for a project.
type ProjectDTO struct {
	ID          uuid.UUID `json:"id"`
	ProjectName string    `json:"project_name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectList wraps paginated projects plus the next page cursor.
type ProjectList struct {
	Projects   []ProjectDTO `json:"projects"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// SummaryAssemblyDTO is one linked assembly with its coverage percent.
type SummaryAssemblyDTO struct {
	ID              uuid.UUID `json:"id"`
	AssemblyName    string    `json:"assembly_name"`
	QuantityToBuild int       `json:"quantity_to_build"`
	Status          string    `json:"status"`
}

// SummaryOrderDTO is a pending order for a part the project consumes.
type SummaryOrderDTO struct {
	ID              uuid.UUID `json:"id"`
	PartID          uuid.UUID `json:"part_id"`
	PartName        string    `json:"part_name"`
	OrderDate       string    `json:"order_date"`
	QuantityOrdered int       `json:"quantity_ordered"`
}

// MaterialDTO aggregates one part's requirement across the project.
type MaterialDTO struct {
	PartID            uuid.UUID `json:"part_id"`
	PartName          string    `json:"part_name"`
	TotalRequired     int       `json:"total_required"`
	CurrentStock      int       `json:"current_stock"`
	AllocatedQuantity int       `json:"allocated_quantity"`
}

// ProjectSummary is the dashboard view of one project.
type ProjectSummary struct {
	Assemblies []SummaryAssemblyDTO `json:"assemblies"`
	Orders     []SummaryOrderDTO    `json:"orders"`
	Materials  []MaterialDTO        `json:"materials"`
}

// ProjectPartDTO is one BOM line of one linked assembly.
type ProjectPartDTO struct {
	PartID            uuid.UUID `json:"part_id"`
	PartName          string    `json:"part_name"`
	Reference         string    `json:"reference"`
	QuantityPer       int       `json:"quantity_per"`
	StockQuantity     int       `json:"stock_quantity"`
	AllocatedQuantity int       `json:"allocated_quantity"`
	AssemblyID        uuid.UUID `json:"assembly_id"`
	AssemblyName      string    `json:"assembly_name"`
	QuantityToBuild   int       `json:"quantity_to_build"`
}

func toDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		ProjectName: project.ProjectName,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}
