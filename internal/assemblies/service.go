package assemblies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Service defines lifecycle operations on assemblies.
type Service interface {
	Create(ctx context.Context, input CreateAssemblyInput) (*AssemblyDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*AssemblyDetail, error)
	List(ctx context.Context, input ListAssembliesInput) (*AssemblyList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateAssemblyInput) (*AssemblyDTO, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	LowStock(ctx context.Context) ([]LowStockDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusRecalculator re-derives an assembly's status inside the caller's
// transaction after the build quantity changes.
type StatusRecalculator interface {
	RecalculateInTx(ctx context.Context, tx *gorm.DB, assemblyID uuid.UUID) (enums.AssemblyStatus, error)
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	tx        txRunner
	recalc    StatusRecalculator
}

// CreateAssemblyInput captures the fields accepted when registering an assembly.
type CreateAssemblyInput struct {
	AssemblyName    string  `json:"assembly_name" validate:"required"`
	QuantityToBuild int     `json:"quantity_to_build" validate:"omitempty,gte=1"`
	Version         *string `json:"version"`
	Description     *string `json:"description"`
}

// ListAssembliesInput carries list filters plus cursor pagination inputs.
type ListAssembliesInput struct {
	Search string
	Limit  int
	Cursor string
}

// UpdateAssemblyInput whitelists the columns a partial update may touch. Nil
// fields are left unchanged; status is derived, never written through here.
type UpdateAssemblyInput struct {
	AssemblyName    *string `json:"assembly_name"`
	QuantityToBuild *int    `json:"quantity_to_build" validate:"omitempty,gte=1"`
	Version         *string `json:"version"`
	Description     *string `json:"description"`
}

// NewService wires an assemblies service. The recalculator runs whenever the
// build quantity changes, since that shifts the required totals.
func NewService(repo Repository, stockRepo stock.Repository, tx txRunner, recalc StatusRecalculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assemblies repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recalc == nil {
		return nil, fmt.Errorf("status recalculator required")
	}
	return &service{repo: repo, stockRepo: stockRepo, tx: tx, recalc: recalc}, nil
}

func (s *service) Create(ctx context.Context, input CreateAssemblyInput) (*AssemblyDTO, error) {
	name := strings.TrimSpace(input.AssemblyName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly name required")
	}
	buildQty := input.QuantityToBuild
	if buildQty == 0 {
		buildQty = 1
	}
	if buildQty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity to build must be at least 1")
	}

	assembly := &models.Assembly{
		ID:              uuid.New(),
		AssemblyName:    name,
		QuantityToBuild: buildQty,
		Status:          enums.AssemblyStatusPlanned,
		Version:         input.Version,
		Description:     input.Description,
	}
	created, err := s.repo.Create(ctx, assembly)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "assembly name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assembly")
	}
	dto := toDTO(*created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AssemblyDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}
	assembly, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
	}

	rows, err := s.repo.DetailLines(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly lines")
	}

	detail := &AssemblyDetail{
		AssemblyDTO: toDTO(*assembly),
		Lines:       make([]DetailLineDTO, 0, len(rows)),
	}
	for _, row := range rows {
		detail.Lines = append(detail.Lines, toDetailLine(row, assembly.QuantityToBuild))
	}
	return detail, nil
}

func (s *service) List(ctx context.Context, input ListAssembliesInput) (*AssemblyList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.List(ctx, strings.TrimSpace(input.Search), pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assemblies")
	}

	list := &AssemblyList{Assemblies: make([]AssemblyDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[i-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Assemblies = append(list.Assemblies, toDTO(row))
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateAssemblyInput) (*AssemblyDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}

	updates := map[string]any{}
	if input.AssemblyName != nil {
		name := strings.TrimSpace(*input.AssemblyName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly name must not be empty")
		}
		updates["assembly_name"] = name
	}
	buildQtyChanged := false
	if input.QuantityToBuild != nil {
		if *input.QuantityToBuild < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity to build must be at least 1")
		}
		updates["quantity_to_build"] = *input.QuantityToBuild
		buildQtyChanged = true
	}
	if input.Version != nil {
		updates["version"] = *input.Version
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	var updated *models.Assembly
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}
		if buildQtyChanged && *input.QuantityToBuild == current.QuantityToBuild {
			buildQtyChanged = false
		}

		if err := repo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "assembly name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assembly")
		}

		// A new build quantity moves the required totals, so the status
		// has to be re-derived in the same transaction.
		if buildQtyChanged {
			if _, err := s.recalc.RecalculateInTx(ctx, tx, id); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload assembly")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*updated)
	return &dto, nil
}

// BulkDelete removes the given assemblies. Units still allocated to their BOM
// lines are returned to part stock first so no inventory is lost.
func (s *service) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one assembly id required")
	}
	for _, id := range ids {
		if id == uuid.Nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "assembly id must not be empty")
		}
	}

	var deleted int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)

		assemblies, err := repo.ListByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assemblies")
		}

		for _, assembly := range assemblies {
			allocations, err := repo.AllocatedByPart(ctx, assembly.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum allocated stock")
			}
			for _, alloc := range allocations {
				if alloc.Allocated <= 0 {
					continue
				}
				if _, err := stockRepo.Increase(ctx, alloc.PartID, alloc.Allocated); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return allocated stock")
				}
			}
			if err := repo.DeleteLines(ctx, assembly.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete assembly lines")
			}
		}

		deleted, err = repo.DeleteByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete assemblies")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// LowStock lists assemblies whose allocated units have not reached the
// required totals, least-covered first.
func (s *service) LowStock(ctx context.Context) ([]LowStockDTO, error) {
	rows, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query low stock")
	}

	out := make([]LowStockDTO, 0, len(rows))
	for _, row := range rows {
		required := row.QuantityToBuild * row.TotalNeeded
		percent := 0.0
		if required > 0 {
			percent = 100 * float64(row.TotalAllocated) / float64(required)
		}
		out = append(out, LowStockDTO{
			ID:                row.ID,
			AssemblyName:      row.AssemblyName,
			AllocationPercent: percent,
		})
	}
	return out, nil
}
