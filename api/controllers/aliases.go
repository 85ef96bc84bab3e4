package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/partshelf/partshelf-backend/api/responses"
	"github.com/partshelf/partshelf-backend/api/validators"
	"github.com/partshelf/partshelf-backend/internal/aliases"
	"github.com/partshelf/partshelf-backend/pkg/logger"
)

type aliasGroupRequest struct {
	AliasName string `json:"alias_name" validate:"required"`
}

type aliasLinkRequest struct {
	PartID uuid.UUID `json:"part_id" validate:"required"`
}

func AliasCreate(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload aliasGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.CreateGroup(r.Context(), payload.AliasName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

func AliasRename(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "aliasID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload aliasGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.RenameGroup(r.Context(), id, payload.AliasName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

func AliasDelete(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "aliasID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteGroup(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]uuid.UUID{"id": id})
	}
}

// AliasSearch returns groups matching the query, with their part counts.
func AliasSearch(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.Search(r.Context(), aliases.SearchInput{
			Query:  r.URL.Query().Get("q"),
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AliasLinks(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "aliasID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		links, err := svc.Links(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, links)
	}
}

// AliasLinkPart maps a part into the group. A part can belong to at most
// one group.
func AliasLinkPart(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "aliasID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload aliasLinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.LinkPart(r.Context(), id, payload.PartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]uuid.UUID{
			"alias_id": id,
			"part_id":  payload.PartID,
		})
	}
}

// AliasUnlinkPart drops the part's group membership, wherever it is linked.
func AliasUnlinkPart(svc aliases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := urlParamUUID(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UnlinkPart(r.Context(), partID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]uuid.UUID{"part_id": partID})
	}
}
