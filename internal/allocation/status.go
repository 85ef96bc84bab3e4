package allocation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

// deriveStatus maps allocation progress onto the assembly status enum.
// An assembly with no lines, or nothing required, stays Planned.
func deriveStatus(quantityToBuild int, totals AllocationTotals) enums.AssemblyStatus {
	required := totals.SumQuantityPer * quantityToBuild
	if totals.LineCount == 0 || required <= 0 {
		return enums.AssemblyStatusPlanned
	}
	switch {
	// Completed requires an exact match; an over-allocated assembly (a line
	// shrunk below its allocation) reads as still in progress.
	case totals.SumAllocated == required:
		return enums.AssemblyStatusCompleted
	case totals.SumAllocated > 0:
		return enums.AssemblyStatusInProgress
	default:
		return enums.AssemblyStatusPlanned
	}
}

// RecalculateInTx re-derives and persists the assembly status inside the
// caller's transaction.
func (s *service) RecalculateInTx(ctx context.Context, tx *gorm.DB, assemblyID uuid.UUID) (enums.AssemblyStatus, error) {
	repo := s.repo.WithTx(tx)

	assembly, err := repo.FindAssembly(ctx, assemblyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
	}

	totals, err := repo.Totals(ctx, assemblyID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum bom lines")
	}

	status := deriveStatus(assembly.QuantityToBuild, totals)
	if status == assembly.Status {
		return status, nil
	}

	if err := repo.UpdateAssemblyStatus(ctx, assemblyID, string(status)); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assembly status")
	}
	return status, nil
}

// Recalculate re-derives the assembly status in its own transaction.
func (s *service) Recalculate(ctx context.Context, assemblyID uuid.UUID) (enums.AssemblyStatus, error) {
	if assemblyID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}
	var before, after enums.AssemblyStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assembly, err := s.repo.WithTx(tx).FindAssembly(ctx, assemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}
		before = assembly.Status

		derived, err := s.RecalculateInTx(ctx, tx, assemblyID)
		if err != nil {
			return err
		}
		after = derived
		return nil
	})
	if err != nil {
		return "", err
	}
	if after != before {
		s.publishStatusChanged(assemblyID, before, after)
	}
	return after, nil
}
