package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Service defines catalog operations on stocked parts.
type Service interface {
	Create(ctx context.Context, input CreatePartInput) (*PartDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PartDTO, error)
	List(ctx context.Context, input ListPartsInput) (*PartList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// CreatePartInput captures the fields accepted when registering a part.
type CreatePartInput struct {
	PartName        string           `json:"part_name" validate:"required"`
	Quantity        int              `json:"quantity" validate:"gte=0"`
	OrderedQuantity int              `json:"ordered_quantity" validate:"gte=0"`
	Price           *decimal.Decimal `json:"price"`
	Manufacturer    *string          `json:"manufacturer"`
	Package         *string          `json:"package"`
	Description     *string          `json:"description"`
	Location        *string          `json:"location"`
	Supplier        *string          `json:"supplier"`
	PurchaseURL     *string          `json:"purchase_url"`
	Memo            *string          `json:"memo"`
	CategoryLarge   *string          `json:"category_large"`
	CategoryMedium  *string          `json:"category_medium"`
	CategorySmall   *string          `json:"category_small"`
}

// ListPartsInput carries list filters plus cursor pagination inputs.
type ListPartsInput struct {
	Search string
	Limit  int
	Cursor string
}

// UpdatePartInput whitelists the columns a partial update may touch. Nil
// fields are left unchanged; quantity moves through the stock ledger, never
// through here.
type UpdatePartInput struct {
	PartName        *string          `json:"part_name"`
	OrderedQuantity *int             `json:"ordered_quantity" validate:"omitempty,gte=0"`
	Price           *decimal.Decimal `json:"price"`
	Manufacturer    *string          `json:"manufacturer"`
	Package         *string          `json:"package"`
	Description     *string          `json:"description"`
	Location        *string          `json:"location"`
	Supplier        *string          `json:"supplier"`
	PurchaseURL     *string          `json:"purchase_url"`
	Memo            *string          `json:"memo"`
	CategoryLarge   *string          `json:"category_large"`
	CategoryMedium  *string          `json:"category_medium"`
	CategorySmall   *string          `json:"category_small"`
}

// NewService wires a parts service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreatePartInput) (*PartDTO, error) {
	name := strings.TrimSpace(input.PartName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name required")
	}
	if input.Quantity < 0 || input.OrderedQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities must not be negative")
	}

	part := &models.Part{
		ID:              uuid.New(),
		PartName:        name,
		Quantity:        input.Quantity,
		OrderedQuantity: input.OrderedQuantity,
		Manufacturer:    input.Manufacturer,
		Package:         input.Package,
		Description:     input.Description,
		Location:        input.Location,
		Supplier:        input.Supplier,
		PurchaseURL:     input.PurchaseURL,
		Memo:            input.Memo,
		CategoryLarge:   input.CategoryLarge,
		CategoryMedium:  input.CategoryMedium,
		CategorySmall:   input.CategorySmall,
	}
	if input.Price != nil {
		part.Price = *input.Price
	}

	created, err := s.repo.Create(ctx, part)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "part name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
	}
	dto := toDTO(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PartDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	dto := toDTO(*part)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListPartsInput) (*PartList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.List(ctx, strings.TrimSpace(input.Search), pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}

	list := &PartList{Parts: make([]PartDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[i-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Parts = append(list.Parts, toDTO(row))
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}

	updates := map[string]any{}
	if input.PartName != nil {
		name := strings.TrimSpace(*input.PartName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name must not be empty")
		}
		updates["part_name"] = name
	}
	if input.OrderedQuantity != nil {
		if *input.OrderedQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ordered quantity must not be negative")
		}
		updates["ordered_quantity"] = *input.OrderedQuantity
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	applyOptionalString(updates, "manufacturer", input.Manufacturer)
	applyOptionalString(updates, "package", input.Package)
	applyOptionalString(updates, "description", input.Description)
	applyOptionalString(updates, "location", input.Location)
	applyOptionalString(updates, "supplier", input.Supplier)
	applyOptionalString(updates, "purchase_url", input.PurchaseURL)
	applyOptionalString(updates, "memo", input.Memo)
	applyOptionalString(updates, "category_large", input.CategoryLarge)
	applyOptionalString(updates, "category_medium", input.CategoryMedium)
	applyOptionalString(updates, "category_small", input.CategorySmall)

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "part name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
	}

	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload part")
	}
	dto := toDTO(*part)
	return &dto, nil
}

// BulkDelete removes the given parts. The whole batch is refused when any
// part still holds free stock; the error details list the offending parts.
func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one part id required")
	}
	for _, id := range ids {
		if id == uuid.Nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "part id must not be empty")
		}
	}

	rows, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parts")
	}

	var blocked []BlockedPart
	for _, row := range rows {
		if row.Quantity > 0 {
			blocked = append(blocked, BlockedPart{ID: row.ID, PartName: row.PartName, Quantity: row.Quantity})
		}
	}
	if len(blocked) > 0 {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "parts with stock cannot be deleted").
			WithDetails(blocked)
	}

	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete parts")
	}
	return deleted, nil
}

func applyOptionalString(updates map[string]any, column string, value *string) {
	if value != nil {
		updates[column] = *value
	}
}
