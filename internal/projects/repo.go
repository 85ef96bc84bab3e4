package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Repository manages persistence for projects and their assembly links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Project, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteLinks(ctx context.Context, projectID uuid.UUID) error
	FindAssembly(ctx context.Context, assemblyID uuid.UUID) (*models.Assembly, error)
	SetAssemblyBuildQuantity(ctx context.Context, assemblyID uuid.UUID, quantity int) error
	FindLink(ctx context.Context, projectID, assemblyID uuid.UUID) (*models.ProjectAssembly, error)
	CreateLink(ctx context.Context, link *models.ProjectAssembly) error
	DeleteLink(ctx context.Context, projectID, assemblyID uuid.UUID) (int64, error)
	SummaryAssemblies(ctx context.Context, projectID uuid.UUID) ([]SummaryAssemblyRow, error)
	SummaryOrders(ctx context.Context, projectID uuid.UUID) ([]SummaryOrderRow, error)
	SummaryMaterials(ctx context.Context, projectID uuid.UUID) ([]MaterialRow, error)
	PartRows(ctx context.Context, projectID uuid.UUID) ([]PartRow, error)
}

// SummaryAssemblyRow is one linked assembly in the project summary.
type SummaryAssemblyRow struct {
	ID              uuid.UUID
	AssemblyName    string
	QuantityToBuild int
	Status          string
}

// SummaryOrderRow is a pending order for a part used by the project.
type SummaryOrderRow struct {
	ID              uuid.UUID
	PartID          uuid.UUID
	PartName        string
	OrderDate       string
	QuantityOrdered int
}

// MaterialRow aggregates a part's requirement across the whole project.
type MaterialRow struct {
	PartID            uuid.UUID
	PartName          string
	TotalRequired     int
	CurrentStock      int
	AllocatedQuantity int
}

// PartRow is one BOM line of one linked assembly, flattened for the
// project-wide parts view.
type PartRow struct {
	PartID            uuid.UUID
	PartName          string
	Reference         string
	QuantityPer       int
	StockQuantity     int
	AllocatedQuantity int
	AssemblyID        uuid.UUID
	AssemblyName      string
	QuantityToBuild   int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a projects repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Project, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{})
	if search != "" {
		query = query.Where("project_name LIKE ?", "%"+search+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var projects []models.Project
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteLinks(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProjectAssembly{}, "project_id = ?", projectID).Error
}

func (r *repository) FindAssembly(ctx context.Context, assemblyID uuid.UUID) (*models.Assembly, error) {
	var assembly models.Assembly
	if err := r.db.WithContext(ctx).First(&assembly, "id = ?", assemblyID).Error; err != nil {
		return nil, err
	}
	return &assembly, nil
}

func (r *repository) SetAssemblyBuildQuantity(ctx context.Context, assemblyID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Assembly{}).
		Where("id = ?", assemblyID).
		Update("quantity_to_build", quantity).Error
}

func (r *repository) FindLink(ctx context.Context, projectID, assemblyID uuid.UUID) (*models.ProjectAssembly, error) {
	var link models.ProjectAssembly
	err := r.db.WithContext(ctx).
		First(&link, "project_id = ? AND assembly_id = ?", projectID, assemblyID).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) CreateLink(ctx context.Context, link *models.ProjectAssembly) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) DeleteLink(ctx context.Context, projectID, assemblyID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Delete(&models.ProjectAssembly{}, "project_id = ? AND assembly_id = ?", projectID, assemblyID)
	return res.RowsAffected, res.Error
}

func (r *repository) SummaryAssemblies(ctx context.Context, projectID uuid.UUID) ([]SummaryAssemblyRow, error) {
	var rows []SummaryAssemblyRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.id, a.assembly_name, a.quantity_to_build, a.status
		FROM assemblies a
		JOIN project_assemblies pa ON pa.assembly_id = a.id
		WHERE pa.project_id = ?
		ORDER BY a.created_at DESC, a.id DESC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SummaryOrders(ctx context.Context, projectID uuid.UUID) ([]SummaryOrderRow, error) {
	var rows []SummaryOrderRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT po.id, po.part_id, p.part_name, po.order_date, po.quantity_ordered
		FROM part_orders po
		JOIN parts p ON p.id = po.part_id
		WHERE EXISTS (
			SELECT 1
			FROM assembly_parts ap
			JOIN project_assemblies pa ON pa.assembly_id = ap.assembly_id
			WHERE pa.project_id = ? AND ap.part_id = po.part_id
		)
		ORDER BY po.order_date DESC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SummaryMaterials(ctx context.Context, projectID uuid.UUID) ([]MaterialRow, error) {
	var rows []MaterialRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.id AS part_id, p.part_name,
			SUM(ap.quantity_per * a.quantity_to_build) AS total_required,
			p.quantity AS current_stock,
			COALESCE(SUM(ap.allocated_quantity), 0) AS allocated_quantity
		FROM parts p
		JOIN assembly_parts ap ON ap.part_id = p.id
		JOIN assemblies a ON a.id = ap.assembly_id
		JOIN project_assemblies pa ON pa.assembly_id = a.id
		WHERE pa.project_id = ?
		GROUP BY p.id, p.part_name, p.quantity
		ORDER BY p.part_name ASC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PartRows(ctx context.Context, projectID uuid.UUID) ([]PartRow, error) {
	var rows []PartRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT ap.part_id, p.part_name, ap.reference, ap.quantity_per,
			p.quantity AS stock_quantity, ap.allocated_quantity,
			a.id AS assembly_id, a.assembly_name, a.quantity_to_build
		FROM project_assemblies pa
		JOIN assemblies a ON a.id = pa.assembly_id
		JOIN assembly_parts ap ON ap.assembly_id = a.id
		JOIN parts p ON p.id = ap.part_id
		WHERE pa.project_id = ?
		ORDER BY a.assembly_name ASC, p.part_name ASC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
