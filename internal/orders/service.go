package orders

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
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

const orderDateLayout = "2006-01-02"

const defaultRecentLimit = 10

// Service defines operations on pending part orders.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	Fulfill(ctx context.Context, orderID uuid.UUID) (*FulfillResult, error)
	ListByPart(ctx context.Context, partID uuid.UUID) ([]OrderDTO, error)
	Recent(ctx context.Context, limit int) ([]RecentOrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
	tx        txRunner
	bus       *events.Bus
}

// PlaceOrderInput captures a purchase for a part on a given date.
type PlaceOrderInput struct {
	PartID          uuid.UUID `json:"part_id" validate:"required"`
	OrderDate       string    `json:"order_date" validate:"required"`
	QuantityOrdered int       `json:"quantity_ordered" validate:"gt=0"`
}

// OrderFulfilledPayload rides on the part_order.fulfilled event.
type OrderFulfilledPayload struct {
	OrderID  uuid.UUID `json:"order_id"`
	PartID   uuid.UUID `json:"part_id"`
	Quantity int       `json:"quantity"`
}

// NewService wires a part-order service. The bus is optional; without one,
// fulfillment simply skips publishing.
func NewService(repo Repository, stockRepo stock.Repository, tx txRunner, bus *events.Bus) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, stockRepo: stockRepo, tx: tx, bus: bus}, nil
}

// Place records a purchase. A second order for the same part and date merges
// into the existing row by summing quantities.
func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if input.PartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if input.QuantityOrdered <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity ordered must be positive")
	}
	if _, err := time.Parse(orderDateLayout, input.OrderDate); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order date must be YYYY-MM-DD")
	}

	var out OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindPart(ctx, input.PartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
		}

		existing, err := repo.FindByPartAndDate(ctx, input.PartID, input.OrderDate)
		switch {
		case err == nil:
			if err := repo.AddQuantity(ctx, existing.ID, input.QuantityOrdered); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge order")
			}
			merged, err := repo.FindByID(ctx, existing.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
			}
			out = toDTO(*merged)
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			order := &models.PartOrder{
				ID:              uuid.New(),
				PartID:          input.PartID,
				OrderDate:       input.OrderDate,
				QuantityOrdered: input.QuantityOrdered,
			}
			if err := repo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			out = toDTO(*order)
			return nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up order")
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Fulfill marks the order delivered: its quantity moves into the part's free
// pool and the order row disappears.
func (s *service) Fulfill(ctx context.Context, orderID uuid.UUID) (*FulfillResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result FulfillResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		applied, err := stockRepo.Increase(ctx, order.PartID, order.QuantityOrdered)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "receive stock")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}

		if _, err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		result = FulfillResult{OrderID: order.ID, PartID: order.PartID, Quantity: order.QuantityOrdered}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Name: events.OrderFulfilled,
			Payload: OrderFulfilledPayload{
				OrderID:  result.OrderID,
				PartID:   result.PartID,
				Quantity: result.Quantity,
			},
		})
	}
	return &result, nil
}

func (s *service) ListByPart(ctx context.Context, partID uuid.UUID) ([]OrderDTO, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	rows, err := s.repo.ListByPart(ctx, partID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]RecentOrderDTO, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
	}
	out := make([]RecentOrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecentOrderDTO{
			ID:              row.ID,
			PartID:          row.PartID,
			PartName:        row.PartName,
			OrderDate:       row.OrderDate,
			QuantityOrdered: row.QuantityOrdered,
		})
	}
	return out, nil
}
