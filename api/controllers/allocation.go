package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/api/responses"
	"github.com/partshelf/partshelf-backend/api/validators"
	"github.com/partshelf/partshelf-backend/internal/allocation"
	"github.com/partshelf/partshelf-backend/pkg/logger"
)

type moveRequest struct {
	Amount int `json:"amount" validate:"gt=0"`
}

type swapPartRequest struct {
	NewPartID uuid.UUID `json:"new_part_id" validate:"required"`
}

type swapQuantityRequest struct {
	SourcePartID uuid.UUID `json:"source_part_id" validate:"required"`
	TargetPartID uuid.UUID `json:"target_part_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gt=0"`
}

// Allocate moves free stock onto a BOM line.
func Allocate(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return moveHandler(svc.Allocate, logg)
}

// Deallocate returns allocated units to the free pool.
func Deallocate(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return moveHandler(svc.Deallocate, logg)
}

func moveHandler(
	move func(ctx context.Context, input allocation.MoveInput) (*allocation.MoveResult, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assemblyID, err := urlParamUUID(r, "assemblyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := urlParamUUID(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload moveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := move(r.Context(), allocation.MoveInput{
			AssemblyID: assemblyID,
			PartID:     partID,
			Amount:     payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SwapPart repoints a BOM line at a different part, keeping its allocation.
func SwapPart(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assemblyID, err := urlParamUUID(r, "assemblyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := urlParamUUID(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload swapPartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SwapPart(r.Context(), allocation.SwapPartInput{
			AssemblyID:    assemblyID,
			CurrentPartID: partID,
			NewPartID:     payload.NewPartID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SwapQuantity moves quantity-per-unit from one BOM line to another within
// the same assembly.
func SwapQuantity(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assemblyID, err := urlParamUUID(r, "assemblyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload swapQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SwapQuantity(r.Context(), allocation.SwapQuantityInput{
			AssemblyID:   assemblyID,
			SourcePartID: payload.SourcePartID,
			TargetPartID: payload.TargetPartID,
			Quantity:     payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Recalculate re-derives the assembly status from its BOM totals.
func Recalculate(svc allocation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assemblyID, err := urlParamUUID(r, "assemblyID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Recalculate(r.Context(), assemblyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"assembly_id": assemblyID, "status": status})
	}
}
