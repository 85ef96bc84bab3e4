package bom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/parts"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusRecalculator re-derives an assembly's build status after a BOM
// mutation. Implemented by the allocation engine.
type StatusRecalculator interface {
	RecalculateInTx(ctx context.Context, tx *gorm.DB, assemblyID uuid.UUID) (enums.AssemblyStatus, error)
}

// Service defines mutations and reads on an assembly's BOM lines.
type Service interface {
	Upsert(ctx context.Context, assemblyID uuid.UUID, input UpsertLineInput) (*BOMLineDTO, error)
	Update(ctx context.Context, assemblyID, partID uuid.UUID, input UpdateLineInput) (*BOMLineDTO, error)
	Remove(ctx context.Context, assemblyID, partID uuid.UUID) error
	Get(ctx context.Context, assemblyID, partID uuid.UUID) (*BOMLineDTO, error)
	ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]BOMLineDTO, error)
}

type service struct {
	repo      Repository
	partsRepo parts.Repository
	stockRepo stock.Repository
	tx        txRunner
	recalc    StatusRecalculator
}

// UpsertLineInput names the part by exact name; a missing part is created
// with zeroed stock and metadata before the line is written.
type UpsertLineInput struct {
	PartName    string `json:"part_name" validate:"required"`
	QuantityPer int    `json:"quantity_per" validate:"gte=0"`
	Reference   string `json:"reference"`
}

// UpdateLineInput whitelists the mutable line columns. AllocatedQuantity is
// owned by the allocation engine and cannot be set here.
type UpdateLineInput struct {
	QuantityPer *int    `json:"quantity_per" validate:"omitempty,gte=0"`
	Reference   *string `json:"reference"`
}

// NewService wires a BOM service with its collaborators.
func NewService(repo Repository, partsRepo parts.Repository, stockRepo stock.Repository, tx txRunner, recalc StatusRecalculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bom repository required")
	}
	if partsRepo == nil {
		return nil, fmt.Errorf("parts repository required")
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
	return &service{
		repo:      repo,
		partsRepo: partsRepo,
		stockRepo: stockRepo,
		tx:        tx,
		recalc:    recalc,
	}, nil
}

func (s *service) Upsert(ctx context.Context, assemblyID uuid.UUID, input UpsertLineInput) (*BOMLineDTO, error) {
	if assemblyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}
	name := strings.TrimSpace(input.PartName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name required")
	}
	if input.QuantityPer < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity per unit must not be negative")
	}

	var dto BOMLineDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assembly, err := repo.FindAssembly(ctx, assemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}

		part, err := s.findOrCreatePart(ctx, tx, name)
		if err != nil {
			return err
		}

		line, err := repo.FindLine(ctx, assemblyID, part.ID)
		switch {
		case err == nil:
			updates := map[string]any{
				"quantity_per": input.QuantityPer,
				"reference":    input.Reference,
			}
			if err := repo.UpdateLine(ctx, line.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bom line")
			}
			line.QuantityPer = input.QuantityPer
			line.Reference = input.Reference
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = &models.AssemblyPart{
				ID:          uuid.New(),
				AssemblyID:  assemblyID,
				PartID:      part.ID,
				QuantityPer: input.QuantityPer,
				Reference:   input.Reference,
			}
			if err := repo.CreateLine(ctx, line); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "part already on this assembly")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bom line")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
		}

		if _, err := s.recalc.RecalculateInTx(ctx, tx, assemblyID); err != nil {
			return err
		}

		line.Part = part
		dto = toDTO(*line, assembly.QuantityToBuild)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Update(ctx context.Context, assemblyID, partID uuid.UUID, input UpdateLineInput) (*BOMLineDTO, error) {
	if assemblyID == uuid.Nil || partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id and part id required")
	}
	if input.QuantityPer != nil && *input.QuantityPer < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity per unit must not be negative")
	}

	var dto BOMLineDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assembly, err := repo.FindAssembly(ctx, assemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}

		line, err := repo.FindLine(ctx, assemblyID, partID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bom line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
		}

		updates := map[string]any{}
		if input.QuantityPer != nil {
			updates["quantity_per"] = *input.QuantityPer
			line.QuantityPer = *input.QuantityPer
		}
		if input.Reference != nil {
			updates["reference"] = *input.Reference
			line.Reference = *input.Reference
		}
		if err := repo.UpdateLine(ctx, line.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bom line")
		}

		if _, err := s.recalc.RecalculateInTx(ctx, tx, assemblyID); err != nil {
			return err
		}

		part, err := s.partsRepo.WithTx(tx).FindByID(ctx, partID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}
		line.Part = part
		dto = toDTO(*line, assembly.QuantityToBuild)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Remove deletes a BOM line and returns any allocated units to the part's
// free pool.
func (s *service) Remove(ctx context.Context, assemblyID, partID uuid.UUID) error {
	if assemblyID == uuid.Nil || partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assembly id and part id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		line, err := repo.FindLine(ctx, assemblyID, partID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bom line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
		}

		if line.AllocatedQuantity > 0 {
			applied, err := s.stockRepo.WithTx(tx).Increase(ctx, line.PartID, line.AllocatedQuantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return allocated stock")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
			}
		}

		if err := repo.DeleteLine(ctx, line.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bom line")
		}

		_, err = s.recalc.RecalculateInTx(ctx, tx, assemblyID)
		return err
	})
}

func (s *service) Get(ctx context.Context, assemblyID, partID uuid.UUID) (*BOMLineDTO, error) {
	if assemblyID == uuid.Nil || partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id and part id required")
	}

	assembly, err := s.repo.FindAssembly(ctx, assemblyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
	}

	line, err := s.repo.FindLine(ctx, assemblyID, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
	}

	part, err := s.partsRepo.FindByID(ctx, partID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	line.Part = part

	dto := toDTO(*line, assembly.QuantityToBuild)
	return &dto, nil
}

func (s *service) ListByAssembly(ctx context.Context, assemblyID uuid.UUID) ([]BOMLineDTO, error) {
	if assemblyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}

	assembly, err := s.repo.FindAssembly(ctx, assemblyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
	}

	lines, err := s.repo.ListByAssembly(ctx, assemblyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bom lines")
	}

	dtos := make([]BOMLineDTO, 0, len(lines))
	for _, line := range lines {
		dtos = append(dtos, toDTO(line, assembly.QuantityToBuild))
	}
	return dtos, nil
}

func (s *service) findOrCreatePart(ctx context.Context, tx *gorm.DB, name string) (*models.Part, error) {
	repo := s.partsRepo.WithTx(tx)

	part, err := repo.FindByName(ctx, name)
	if err == nil {
		return part, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part by name")
	}

	part = &models.Part{ID: uuid.New(), PartName: name}
	if _, err := repo.Create(ctx, part); err != nil {
		if db.IsUniqueViolation(err, "") {
			// lost a create race; the row exists now
			return repo.FindByName(ctx, name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
	}
	return part, nil
}
