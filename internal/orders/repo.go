package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

// Repository manages persistence for pending part orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PartOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PartOrder, error)
	FindByPartAndDate(ctx context.Context, partID uuid.UUID, orderDate string) (*models.PartOrder, error)
	AddQuantity(ctx context.Context, id uuid.UUID, amount int) error
	ListByPart(ctx context.Context, partID uuid.UUID) ([]models.PartOrder, error)
	Recent(ctx context.Context, limit int) ([]RecentOrderRow, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error)
}

// RecentOrderRow is a pending order joined to its part name.
type RecentOrderRow struct {
	ID              uuid.UUID
	PartID          uuid.UUID
	PartName        string
	OrderDate       string
	QuantityOrdered int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a part-order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PartOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PartOrder, error) {
	var order models.PartOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPartAndDate(ctx context.Context, partID uuid.UUID, orderDate string) (*models.PartOrder, error) {
	var order models.PartOrder
	err := r.db.WithContext(ctx).
		First(&order, "part_id = ? AND order_date = ?", partID, orderDate).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) AddQuantity(ctx context.Context, id uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.PartOrder{}).
		Where("id = ?", id).
		Update("quantity_ordered", gorm.Expr("quantity_ordered + ?", amount)).Error
}

func (r *repository) ListByPart(ctx context.Context, partID uuid.UUID) ([]models.PartOrder, error) {
	var rows []models.PartOrder
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("order_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]RecentOrderRow, error) {
	var rows []RecentOrderRow
	err := r.db.WithContext(ctx).
		Model(&models.PartOrder{}).
		Select(`part_orders.id, part_orders.part_id, part_orders.order_date,
			part_orders.quantity_ordered, parts.part_name`).
		Joins("JOIN parts ON parts.id = part_orders.part_id").
		Order("part_orders.order_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.PartOrder{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func (r *repository) FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}
