package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

// Service moves quantity in and out of the parts free pool.
type Service interface {
	Increase(ctx context.Context, partID uuid.UUID, amount int) error
	Decrease(ctx context.Context, partID uuid.UUID, amount int) error
}

type service struct {
	repo Repository
}

// NewService wires a stock service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Increase(ctx context.Context, partID uuid.UUID, amount int) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	applied, err := s.repo.Increase(ctx, partID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increase stock")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
	}
	return nil
}

func (s *service) Decrease(ctx context.Context, partID uuid.UUID, amount int) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	applied, err := s.repo.Decrease(ctx, partID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrease stock")
	}
	if applied {
		return nil
	}

	// Guard did not match: distinguish a missing part from a short pool.
	if _, err := s.repo.FindPart(ctx, partID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough free stock")
}
