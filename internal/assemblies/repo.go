package assemblies

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Repository manages persistence for assemblies and their aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assembly *models.Assembly) (*models.Assembly, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assembly, error)
	List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Assembly, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Assembly, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DetailLines(ctx context.Context, assemblyID uuid.UUID) ([]DetailLineRow, error)
	LowStock(ctx context.Context) ([]LowStockRow, error)
	AllocatedByPart(ctx context.Context, assemblyID uuid.UUID) ([]PartAllocationRow, error)
	DeleteLines(ctx context.Context, assemblyID uuid.UUID) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// DetailLineRow is a BOM line joined to its part and alias group.
type DetailLineRow struct {
	LineID            uuid.UUID
	PartID            uuid.UUID
	PartName          string
	Package           *string
	Reference         string
	QuantityPer       int
	AllocatedQuantity int
	Quantity          int
	AliasID           uuid.NullUUID
	AliasName         *string
}

// LowStockRow aggregates an under-allocated assembly.
type LowStockRow struct {
	ID              uuid.UUID
	AssemblyName    string
	QuantityToBuild int
	TotalNeeded     int
	TotalAllocated  int
}

// PartAllocationRow sums allocated units per part across an assembly's lines.
type PartAllocationRow struct {
	PartID    uuid.UUID
	Allocated int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assemblies repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assembly *models.Assembly) (*models.Assembly, error) {
	if err := r.db.WithContext(ctx).Create(assembly).Error; err != nil {
		return nil, err
	}
	return assembly, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assembly, error) {
	var assembly models.Assembly
	if err := r.db.WithContext(ctx).First(&assembly, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assembly, nil
}

func (r *repository) List(ctx context.Context, search string, limit int, cursor *pagination.Cursor) ([]models.Assembly, error) {
	query := r.db.WithContext(ctx).Model(&models.Assembly{})
	if search != "" {
		query = query.Where("assembly_name LIKE ?", "%"+search+"%")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var assemblies []models.Assembly
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&assemblies).Error
	if err != nil {
		return nil, err
	}
	return assemblies, nil
}

func (r *repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Assembly, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assemblies []models.Assembly
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assemblies).Error; err != nil {
		return nil, err
	}
	return assemblies, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Assembly{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DetailLines(ctx context.Context, assemblyID uuid.UUID) ([]DetailLineRow, error) {
	var rows []DetailLineRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT ap.id AS line_id, ap.part_id, ap.reference,
			ap.quantity_per, ap.allocated_quantity,
			p.part_name, p.package, p.quantity,
			al.alias_id, a.alias_name
		FROM assembly_parts ap
		JOIN parts p ON p.id = ap.part_id
		LEFT JOIN alias_links al ON al.part_id = p.id
		LEFT JOIN aliases a ON a.id = al.alias_id
		WHERE ap.assembly_id = ?
		ORDER BY p.part_name ASC
	`, assemblyID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LowStock returns assemblies whose allocation has not reached the required
// total, least-covered first.
func (r *repository) LowStock(ctx context.Context) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.id, a.assembly_name, a.quantity_to_build,
			COALESCE(SUM(ap.quantity_per), 0) AS total_needed,
			COALESCE(SUM(ap.allocated_quantity), 0) AS total_allocated
		FROM assemblies a
		JOIN assembly_parts ap ON ap.assembly_id = a.id
		GROUP BY a.id, a.assembly_name, a.quantity_to_build
		HAVING COALESCE(SUM(ap.allocated_quantity), 0) < a.quantity_to_build * COALESCE(SUM(ap.quantity_per), 0)
		ORDER BY (1.0 * COALESCE(SUM(ap.allocated_quantity), 0) /
			NULLIF(a.quantity_to_build * COALESCE(SUM(ap.quantity_per), 0), 0)) ASC
	`).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) AllocatedByPart(ctx context.Context, assemblyID uuid.UUID) ([]PartAllocationRow, error) {
	var rows []PartAllocationRow
	err := r.db.WithContext(ctx).
		Model(&models.AssemblyPart{}).
		Select("part_id, COALESCE(SUM(allocated_quantity), 0) AS allocated").
		Where("assembly_id = ?", assemblyID).
		Group("part_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteLines(ctx context.Context, assemblyID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AssemblyPart{}, "assembly_id = ?", assemblyID).Error
}

func (r *repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Assembly{})
	return res.RowsAffected, res.Error
}
