package aliases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves part compatibility: named groups of interchangeable
// parts, with at most one group per part.
type Service interface {
	CreateGroup(ctx context.Context, name string) (*GroupDTO, error)
	RenameGroup(ctx context.Context, id uuid.UUID, name string) (*GroupDTO, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, input SearchInput) (*GroupList, error)
	Links(ctx context.Context, aliasID uuid.UUID) ([]LinkDTO, error)
	LinkPart(ctx context.Context, aliasID, partID uuid.UUID) error
	UnlinkPart(ctx context.Context, partID uuid.UUID) error
	GroupForPart(ctx context.Context, partID uuid.UUID) (*GroupDTO, error)
	MergeOnParts(ctx context.Context, sourcePartID, targetPartID uuid.UUID) error
}

// SearchInput carries the group search query plus pagination inputs.
type SearchInput struct {
	Query  string
	Limit  int
	Cursor string
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires an alias service with its collaborators.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alias repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// normalizeGroupName trims and uppercases; group names are case-insensitive
// identifiers.
func normalizeGroupName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *service) CreateGroup(ctx context.Context, name string) (*GroupDTO, error) {
	normalized := normalizeGroupName(name)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group name required")
	}

	group := &models.Alias{ID: uuid.New(), AliasName: normalized}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "group name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create group")
	}
	return &GroupDTO{ID: group.ID, AliasName: group.AliasName, CreatedAt: group.CreatedAt}, nil
}

func (s *service) RenameGroup(ctx context.Context, id uuid.UUID, name string) (*GroupDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	normalized := normalizeGroupName(name)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group name required")
	}

	group, err := s.repo.FindGroupByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group")
	}

	if err := s.repo.UpdateGroupName(ctx, id, normalized); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "group name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename group")
	}
	return &GroupDTO{ID: group.ID, AliasName: normalized, CreatedAt: group.CreatedAt}, nil
}

func (s *service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	if _, err := s.repo.FindGroupByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteGroup(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete group")
		}
		return nil
	})
}

func (s *service) Search(ctx context.Context, input SearchInput) (*GroupList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.SearchGroups(ctx, strings.TrimSpace(input.Query), pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search groups")
	}

	list := &GroupList{Groups: make([]GroupDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[i-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Groups = append(list.Groups, GroupDTO{
			ID:        row.ID,
			AliasName: row.AliasName,
			PartCount: row.PartCount,
			CreatedAt: row.CreatedAt,
		})
	}
	return list, nil
}

func (s *service) Links(ctx context.Context, aliasID uuid.UUID) ([]LinkDTO, error) {
	if aliasID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	if _, err := s.repo.FindGroupByID(ctx, aliasID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group")
	}

	rows, err := s.repo.ListLinks(ctx, aliasID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list links")
	}

	links := make([]LinkDTO, 0, len(rows))
	for _, row := range rows {
		links = append(links, LinkDTO(row))
	}
	return links, nil
}

// LinkPart maps a part into a group. Linking a part already in the same
// group is a no-op; a part in a different group is rejected.
func (s *service) LinkPart(ctx context.Context, aliasID, partID uuid.UUID) error {
	if aliasID == uuid.Nil || partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group id and part id required")
	}

	if _, err := s.repo.FindGroupByID(ctx, aliasID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group")
	}
	if _, err := s.repo.FindPart(ctx, partID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
	}

	existing, err := s.repo.FindLinkByPart(ctx, partID)
	switch {
	case err == nil:
		if existing.AliasID == aliasID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "part already belongs to another group")
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing link")
	}

	link := &models.AliasLink{ID: uuid.New(), AliasID: aliasID, PartID: partID}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "part already belongs to another group")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create link")
	}
	return nil
}

// UnlinkPart removes the part from whatever group it is in. The group and
// the part row both survive.
func (s *service) UnlinkPart(ctx context.Context, partID uuid.UUID) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if _, err := s.repo.DeleteLinkByPart(ctx, partID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete link")
	}
	return nil
}

// GroupForPart returns the part's group, or nil when it has none.
func (s *service) GroupForPart(ctx context.Context, partID uuid.UUID) (*GroupDTO, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}

	link, err := s.repo.FindLinkByPart(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link")
	}

	group, err := s.repo.FindGroupByID(ctx, link.AliasID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group")
	}
	return &GroupDTO{ID: group.ID, AliasName: group.AliasName, CreatedAt: group.CreatedAt}, nil
}

// MergeOnParts joins two parts into one compatibility group:
//   - neither linked: a new group named after the target part is created and
//     both parts are linked into it
//   - one linked: the unlinked part joins the other's group
//   - both linked to different groups: the source group's links move to the
//     target group and the emptied source group is deleted
//   - both already in the same group: no-op
func (s *service) MergeOnParts(ctx context.Context, sourcePartID, targetPartID uuid.UUID) error {
	if sourcePartID == uuid.Nil || targetPartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "source and target part ids required")
	}
	if sourcePartID == targetPartID {
		return pkgerrors.New(pkgerrors.CodeValidation, "source part equals target part")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		srcGroup, err := groupIDForPart(ctx, repo, sourcePartID)
		if err != nil {
			return err
		}
		tgtGroup, err := groupIDForPart(ctx, repo, targetPartID)
		if err != nil {
			return err
		}

		switch {
		case srcGroup == uuid.Nil && tgtGroup == uuid.Nil:
			target, err := repo.FindPart(ctx, targetPartID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "target part not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target part")
			}
			if _, err := repo.FindPart(ctx, sourcePartID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "source part not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source part")
			}

			group := &models.Alias{ID: uuid.New(), AliasName: normalizeGroupName(target.PartName)}
			if err := repo.CreateGroup(ctx, group); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "group name already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create group")
			}
			for _, partID := range []uuid.UUID{sourcePartID, targetPartID} {
				link := &models.AliasLink{ID: uuid.New(), AliasID: group.ID, PartID: partID}
				if err := repo.CreateLink(ctx, link); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link part")
				}
			}

		case srcGroup != uuid.Nil && tgtGroup == uuid.Nil:
			if _, err := repo.FindPart(ctx, targetPartID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "target part not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load target part")
			}
			link := &models.AliasLink{ID: uuid.New(), AliasID: srcGroup, PartID: targetPartID}
			if err := repo.CreateLink(ctx, link); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link target part")
			}

		case srcGroup == uuid.Nil && tgtGroup != uuid.Nil:
			if _, err := repo.FindPart(ctx, sourcePartID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "source part not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source part")
			}
			link := &models.AliasLink{ID: uuid.New(), AliasID: tgtGroup, PartID: sourcePartID}
			if err := repo.CreateLink(ctx, link); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link source part")
			}

		case srcGroup != tgtGroup:
			if err := repo.MoveLinks(ctx, srcGroup, tgtGroup); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move links")
			}
			if err := repo.DeleteGroup(ctx, srcGroup); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete emptied group")
			}
		}
		return nil
	})
}

func groupIDForPart(ctx context.Context, repo Repository, partID uuid.UUID) (uuid.UUID, error) {
	link, err := repo.FindLinkByPart(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link")
	}
	return link.AliasID, nil
}
