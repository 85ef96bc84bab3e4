package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/events"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
	"github.com/partshelf/partshelf-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PartMerger links two parts into one compatibility group. Implemented by
// the alias resolver.
type PartMerger interface {
	MergeOnParts(ctx context.Context, sourcePartID, targetPartID uuid.UUID) error
}

// Service is the allocation engine: it moves stock between the parts free
// pool and BOM line allocations, one transaction per operation, re-deriving
// the assembly status each time.
type Service interface {
	Allocate(ctx context.Context, input MoveInput) (*MoveResult, error)
	Deallocate(ctx context.Context, input MoveInput) (*MoveResult, error)
	SwapPart(ctx context.Context, input SwapPartInput) (*MoveResult, error)
	SwapQuantity(ctx context.Context, input SwapQuantityInput) (*SwapQuantityResult, error)
	MergeParts(ctx context.Context, sourcePartID, targetPartID uuid.UUID) error
	Recalculate(ctx context.Context, assemblyID uuid.UUID) (enums.AssemblyStatus, error)
	RecalculateInTx(ctx context.Context, tx *gorm.DB, assemblyID uuid.UUID) (enums.AssemblyStatus, error)
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	tx        txRunner
	bus       *events.Bus
	metrics   *metrics.AllocationMetrics
	merger    PartMerger
}

// MoveInput identifies a BOM line and the unit count to move.
type MoveInput struct {
	AssemblyID uuid.UUID
	PartID     uuid.UUID
	Amount     int
}

// MoveResult reports the line state after the operation.
type MoveResult struct {
	LineID            uuid.UUID            `json:"line_id"`
	AssemblyID        uuid.UUID            `json:"assembly_id"`
	PartID            uuid.UUID            `json:"part_id"`
	AllocatedQuantity int                  `json:"allocated_quantity"`
	Status            enums.AssemblyStatus `json:"status"`
}

// SwapPartInput swaps the part a BOM line points at, keeping its allocation.
type SwapPartInput struct {
	AssemblyID    uuid.UUID
	CurrentPartID uuid.UUID
	NewPartID     uuid.UUID
}

// SwapQuantityInput moves quantity-per-unit between two lines of the same
// assembly.
type SwapQuantityInput struct {
	AssemblyID   uuid.UUID
	SourcePartID uuid.UUID
	TargetPartID uuid.UUID
	Quantity     int
}

// SwapQuantityResult reports both line states after the move. SourceDeleted
// is set when the source line reached zero quantity-per and was removed.
type SwapQuantityResult struct {
	SourceDeleted  bool                 `json:"source_deleted"`
	ReturnedStock  int                  `json:"returned_stock"`
	SourceLine     *MoveResult          `json:"source_line,omitempty"`
	TargetLine     MoveResult           `json:"target_line"`
	AssemblyStatus enums.AssemblyStatus `json:"assembly_status"`
}

// AllocationChangedPayload rides events.AllocationChanged.
type AllocationChangedPayload struct {
	Operation  string    `json:"operation"`
	AssemblyID uuid.UUID `json:"assembly_id"`
	PartID     uuid.UUID `json:"part_id"`
	Amount     int       `json:"amount"`
}

// StatusChangedPayload rides events.StatusChanged.
type StatusChangedPayload struct {
	AssemblyID uuid.UUID            `json:"assembly_id"`
	From       enums.AssemblyStatus `json:"from"`
	To         enums.AssemblyStatus `json:"to"`
}

// NewService wires the allocation engine with its collaborators. The bus,
// metrics and merger are optional.
func NewService(repo Repository, stockRepo stock.Repository, tx txRunner, bus *events.Bus, m *metrics.AllocationMetrics, merger PartMerger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		stockRepo: stockRepo,
		tx:        tx,
		bus:       bus,
		metrics:   m,
		merger:    merger,
	}, nil
}

func (s *service) Allocate(ctx context.Context, input MoveInput) (*MoveResult, error) {
	return s.move(ctx, "allocate", input)
}

func (s *service) Deallocate(ctx context.Context, input MoveInput) (*MoveResult, error) {
	return s.move(ctx, "deallocate", input)
}

func (s *service) move(ctx context.Context, operation string, input MoveInput) (*MoveResult, error) {
	start := time.Now()
	result, before, after, err := s.runMove(ctx, operation, input)
	s.record(operation, start, err)
	if err != nil {
		return nil, err
	}

	s.publishAllocationChanged(operation, input)
	if after != before {
		s.publishStatusChanged(input.AssemblyID, before, after)
	}
	return result, nil
}

func (s *service) runMove(ctx context.Context, operation string, input MoveInput) (*MoveResult, enums.AssemblyStatus, enums.AssemblyStatus, error) {
	if input.AssemblyID == uuid.Nil || input.PartID == uuid.Nil {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "assembly id and part id required")
	}
	if input.Amount <= 0 {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var (
		result MoveResult
		before enums.AssemblyStatus
		after  enums.AssemblyStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)

		assembly, err := repo.FindAssembly(ctx, input.AssemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}
		before = assembly.Status

		line, err := repo.FindLine(ctx, input.AssemblyID, input.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bom line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
		}

		switch operation {
		case "allocate":
			applied, err := stockRepo.Decrease(ctx, input.PartID, input.Amount)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrease stock")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough free stock")
			}

			maxTotal := line.QuantityPer * assembly.QuantityToBuild
			applied, err = repo.IncrementAllocated(ctx, line.ID, input.Amount, maxTotal)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment allocation")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeOverAllocation, "allocation exceeds required quantity")
			}
			line.AllocatedQuantity += input.Amount

		case "deallocate":
			applied, err := repo.DecrementAllocated(ctx, line.ID, input.Amount)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement allocation")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeOverDeallocation, "deallocation exceeds allocated quantity")
			}
			applied, err = stockRepo.Increase(ctx, input.PartID, input.Amount)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return stock")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
			}
			line.AllocatedQuantity -= input.Amount
		}

		after, err = s.RecalculateInTx(ctx, tx, input.AssemblyID)
		if err != nil {
			return err
		}

		result = MoveResult{
			LineID:            line.ID,
			AssemblyID:        input.AssemblyID,
			PartID:            input.PartID,
			AllocatedQuantity: line.AllocatedQuantity,
			Status:            after,
		}
		return nil
	})
	if err != nil {
		return nil, "", "", err
	}
	return &result, before, after, nil
}

// SwapPart repoints a BOM line at a replacement part. The allocated count
// moves with the line; stock pools of both parts stay untouched, so a swap
// can leave the old part's pool owing units the new pool never received.
func (s *service) SwapPart(ctx context.Context, input SwapPartInput) (*MoveResult, error) {
	start := time.Now()
	result, before, after, err := s.runSwapPart(ctx, input)
	s.record("swap_part", start, err)
	if err != nil {
		return nil, err
	}
	s.publishAllocationChanged("swap_part", MoveInput{AssemblyID: input.AssemblyID, PartID: input.NewPartID})
	if after != before {
		s.publishStatusChanged(input.AssemblyID, before, after)
	}
	return result, nil
}

func (s *service) runSwapPart(ctx context.Context, input SwapPartInput) (*MoveResult, enums.AssemblyStatus, enums.AssemblyStatus, error) {
	if input.AssemblyID == uuid.Nil || input.CurrentPartID == uuid.Nil || input.NewPartID == uuid.Nil {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "assembly id and both part ids required")
	}
	if input.CurrentPartID == input.NewPartID {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "replacement part equals current part")
	}

	var (
		result MoveResult
		before enums.AssemblyStatus
		after  enums.AssemblyStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		assembly, err := repo.FindAssembly(ctx, input.AssemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}
		before = assembly.Status

		line, err := repo.FindLine(ctx, input.AssemblyID, input.CurrentPartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "bom line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bom line")
		}

		if _, err := s.stockRepo.WithTx(tx).FindPart(ctx, input.NewPartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "replacement part not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replacement part")
		}

		if _, err := repo.FindLine(ctx, input.AssemblyID, input.NewPartID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "replacement part already on this assembly")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check replacement line")
		}

		if err := repo.UpdateLine(ctx, line.ID, map[string]any{"part_id": input.NewPartID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repoint bom line")
		}

		after, err = s.RecalculateInTx(ctx, tx, input.AssemblyID)
		if err != nil {
			return err
		}

		result = MoveResult{
			LineID:            line.ID,
			AssemblyID:        input.AssemblyID,
			PartID:            input.NewPartID,
			AllocatedQuantity: line.AllocatedQuantity,
			Status:            after,
		}
		return nil
	})
	if err != nil {
		return nil, "", "", err
	}
	return &result, before, after, nil
}

// SwapQuantity moves quantity-per-unit from one line to another on the same
// assembly. When the source line's allocation exceeds its shrunken
// requirement the excess returns to the part's free pool; a source line at
// zero quantity-per is deleted and its full allocation returned.
func (s *service) SwapQuantity(ctx context.Context, input SwapQuantityInput) (*SwapQuantityResult, error) {
	start := time.Now()
	result, before, after, err := s.runSwapQuantity(ctx, input)
	s.record("swap_quantity", start, err)
	if err != nil {
		return nil, err
	}
	s.publishAllocationChanged("swap_quantity", MoveInput{
		AssemblyID: input.AssemblyID,
		PartID:     input.TargetPartID,
		Amount:     input.Quantity,
	})
	if after != before {
		s.publishStatusChanged(input.AssemblyID, before, after)
	}
	return result, nil
}

func (s *service) runSwapQuantity(ctx context.Context, input SwapQuantityInput) (*SwapQuantityResult, enums.AssemblyStatus, enums.AssemblyStatus, error) {
	if input.AssemblyID == uuid.Nil || input.SourcePartID == uuid.Nil || input.TargetPartID == uuid.Nil {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "assembly id and both part ids required")
	}
	if input.SourcePartID == input.TargetPartID {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "target part equals source part")
	}
	if input.Quantity <= 0 {
		return nil, "", "", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var (
		result SwapQuantityResult
		before enums.AssemblyStatus
		after  enums.AssemblyStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)

		assembly, err := repo.FindAssembly(ctx, input.AssemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}
		before = assembly.Status

		source, err := repo.FindLine(ctx, input.AssemblyID, input.SourcePartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "source bom line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source line")
		}
		if input.Quantity > source.QuantityPer {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds source line quantity per unit")
		}

		if _, err := stockRepo.FindPart(ctx, input.TargetPartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "target part not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target part")
		}

		target, err := repo.FindLine(ctx, input.AssemblyID, input.TargetPartID)
		switch {
		case err == nil:
			if err := repo.UpdateLine(ctx, target.ID, map[string]any{
				"quantity_per": target.QuantityPer + input.Quantity,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grow target line")
			}
			target.QuantityPer += input.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			target = &models.AssemblyPart{
				ID:          uuid.New(),
				AssemblyID:  input.AssemblyID,
				PartID:      input.TargetPartID,
				QuantityPer: input.Quantity,
			}
			if err := repo.CreateLine(ctx, target); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create target line")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target line")
		}

		newPer := source.QuantityPer - input.Quantity
		returned := 0
		sourceDeleted := false

		if newPer == 0 {
			returned = source.AllocatedQuantity
			if returned > 0 {
				applied, err := stockRepo.Increase(ctx, source.PartID, returned)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return allocated stock")
				}
				if !applied {
					return pkgerrors.New(pkgerrors.CodeNotFound, "source part not found")
				}
			}
			if err := repo.DeleteLine(ctx, source.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete source line")
			}
			sourceDeleted = true
		} else {
			updates := map[string]any{"quantity_per": newPer}
			newRequired := newPer * assembly.QuantityToBuild
			if source.AllocatedQuantity > newRequired {
				returned = source.AllocatedQuantity - newRequired
				applied, err := stockRepo.Increase(ctx, source.PartID, returned)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return excess stock")
				}
				if !applied {
					return pkgerrors.New(pkgerrors.CodeNotFound, "source part not found")
				}
				updates["allocated_quantity"] = newRequired
				source.AllocatedQuantity = newRequired
			}
			if err := repo.UpdateLine(ctx, source.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shrink source line")
			}
			source.QuantityPer = newPer
		}

		after, err = s.RecalculateInTx(ctx, tx, input.AssemblyID)
		if err != nil {
			return err
		}

		result = SwapQuantityResult{
			SourceDeleted: sourceDeleted,
			ReturnedStock: returned,
			TargetLine: MoveResult{
				LineID:            target.ID,
				AssemblyID:        input.AssemblyID,
				PartID:            input.TargetPartID,
				AllocatedQuantity: target.AllocatedQuantity,
				Status:            after,
			},
			AssemblyStatus: after,
		}
		if !sourceDeleted {
			result.SourceLine = &MoveResult{
				LineID:            source.ID,
				AssemblyID:        input.AssemblyID,
				PartID:            input.SourcePartID,
				AllocatedQuantity: source.AllocatedQuantity,
				Status:            after,
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", "", err
	}
	return &result, before, after, nil
}

// MergeParts links two parts into one compatibility group via the alias
// resolver. Merging never touches stock or allocations.
func (s *service) MergeParts(ctx context.Context, sourcePartID, targetPartID uuid.UUID) error {
	if s.merger == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "part merger unavailable")
	}
	start := time.Now()
	err := s.merger.MergeOnParts(ctx, sourcePartID, targetPartID)
	s.record("merge_parts", start, err)
	return err
}

func (s *service) record(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(operation)
		return
	}
	s.metrics.IncSuccess(operation)
}

func (s *service) publishAllocationChanged(operation string, input MoveInput) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Name: events.AllocationChanged,
		Payload: AllocationChangedPayload{
			Operation:  operation,
			AssemblyID: input.AssemblyID,
			PartID:     input.PartID,
			Amount:     input.Amount,
		},
	})
}

func (s *service) publishStatusChanged(assemblyID uuid.UUID, from, to enums.AssemblyStatus) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Name: events.StatusChanged,
		Payload: StatusChangedPayload{
			AssemblyID: assemblyID,
			From:       from,
			To:         to,
		},
	})
}
