package aliases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Repository manages persistence for alias groups and their part links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGroup(ctx context.Context, group *models.Alias) error
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.Alias, error)
	SearchGroups(ctx context.Context, query string, limit int, cursor *pagination.Cursor) ([]GroupRow, error)
	UpdateGroupName(ctx context.Context, id uuid.UUID, name string) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	ListLinks(ctx context.Context, aliasID uuid.UUID) ([]LinkRow, error)
	FindLinkByPart(ctx context.Context, partID uuid.UUID) (*models.AliasLink, error)
	CreateLink(ctx context.Context, link *models.AliasLink) error
	DeleteLinkByPart(ctx context.Context, partID uuid.UUID) (int64, error)
	MoveLinks(ctx context.Context, fromAliasID, toAliasID uuid.UUID) error
	FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error)
}

// GroupRow is an alias group joined to its mapped part count.
type GroupRow struct {
	models.Alias
	PartCount int
}

// LinkRow is an alias link joined to the part it maps.
type LinkRow struct {
	LinkID   uuid.UUID
	AliasID  uuid.UUID
	PartID   uuid.UUID
	PartName string
	Quantity int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an alias repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateGroup(ctx context.Context, group *models.Alias) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.Alias, error) {
	var group models.Alias
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) SearchGroups(ctx context.Context, query string, limit int, cursor *pagination.Cursor) ([]GroupRow, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Alias{}).
		Select("aliases.*, COUNT(alias_links.id) AS part_count").
		Joins("LEFT JOIN alias_links ON alias_links.alias_id = aliases.id").
		Group("aliases.id")
	if query != "" {
		q = q.Where("aliases.alias_name LIKE ?", "%"+query+"%")
	}
	if cursor != nil {
		q = q.Where(
			"(aliases.created_at < ?) OR (aliases.created_at = ? AND aliases.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []GroupRow
	err := q.
		Order("aliases.created_at DESC, aliases.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateGroupName(ctx context.Context, id uuid.UUID, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.Alias{}).
		Where("id = ?", id).
		Update("alias_name", name).Error
}

// DeleteGroup removes the group and its links. Links are deleted explicitly
// rather than relying on database-level cascade.
func (r *repository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.AliasLink{}, "alias_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Alias{}, "id = ?", id).Error
}

func (r *repository) ListLinks(ctx context.Context, aliasID uuid.UUID) ([]LinkRow, error) {
	var rows []LinkRow
	err := r.db.WithContext(ctx).
		Model(&models.AliasLink{}).
		Select(`alias_links.id AS link_id, alias_links.alias_id, alias_links.part_id,
			parts.part_name, parts.quantity`).
		Joins("JOIN parts ON parts.id = alias_links.part_id").
		Where("alias_links.alias_id = ?", aliasID).
		Order("parts.part_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindLinkByPart(ctx context.Context, partID uuid.UUID) (*models.AliasLink, error) {
	var link models.AliasLink
	if err := r.db.WithContext(ctx).First(&link, "part_id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) CreateLink(ctx context.Context, link *models.AliasLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) DeleteLinkByPart(ctx context.Context, partID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.AliasLink{}, "part_id = ?", partID)
	return res.RowsAffected, res.Error
}

func (r *repository) MoveLinks(ctx context.Context, fromAliasID, toAliasID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.AliasLink{}).
		Where("alias_id = ?", fromAliasID).
		Update("alias_id", toAliasID).Error
}

func (r *repository) FindPart(ctx context.Context, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", partID).Error; err != nil {
		return nil, err
	}
	return &part, nil
}
