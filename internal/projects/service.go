package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
	"github.com/partshelf/partshelf-backend/pkg/pagination"
)

// Service defines operations on projects and their assembly links.
type Service interface {
	Create(ctx context.Context, input CreateProjectInput) (*ProjectDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error)
	List(ctx context.Context, input ListProjectsInput) (*ProjectList, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LinkAssembly(ctx context.Context, projectID uuid.UUID, input LinkAssemblyInput) error
	UnlinkAssembly(ctx context.Context, projectID, assemblyID uuid.UUID) error
	Summary(ctx context.Context, projectID uuid.UUID) (*ProjectSummary, error)
	Parts(ctx context.Context, projectID uuid.UUID) ([]ProjectPartDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusRecalculator re-derives an assembly's status inside the caller's
// transaction when linking changes its build quantity.
type StatusRecalculator interface {
	RecalculateInTx(ctx context.Context, tx *gorm.DB, assemblyID uuid.UUID) (enums.AssemblyStatus, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	recalc StatusRecalculator
}

// CreateProjectInput captures the fields accepted when registering a project.
type CreateProjectInput struct {
	ProjectName string  `json:"project_name" validate:"required"`
	Description *string `json:"description"`
}

// ListProjectsInput carries list filters plus cursor pagination inputs.
type ListProjectsInput struct {
	Search string
	Limit  int
	Cursor string
}

// UpdateProjectInput whitelists the columns a partial update may touch.
type UpdateProjectInput struct {
	ProjectName *string `json:"project_name"`
	Description *string `json:"description"`
}

// LinkAssemblyInput attaches an assembly to a project, optionally retargeting
// its build quantity in the same transaction.
type LinkAssemblyInput struct {
	AssemblyID      uuid.UUID `json:"assembly_id" validate:"required"`
	QuantityToBuild *int      `json:"quantity_to_build" validate:"omitempty,gte=1"`
}

// NewService wires a projects service with its dependencies.
func NewService(repo Repository, tx txRunner, recalc StatusRecalculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recalc == nil {
		return nil, fmt.Errorf("status recalculator required")
	}
	return &service{repo: repo, tx: tx, recalc: recalc}, nil
}

func (s *service) Create(ctx context.Context, input CreateProjectInput) (*ProjectDTO, error) {
	name := strings.TrimSpace(input.ProjectName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name required")
	}

	project := &models.Project{
		ID:          uuid.New(),
		ProjectName: name,
		Description: input.Description,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "project name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
	}
	dto := toDTO(*project)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProjectDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	dto := toDTO(*project)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListProjectsInput) (*ProjectList, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.List(ctx, strings.TrimSpace(input.Search), pagination.LimitWithBuffer(input.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}

	list := &ProjectList{Projects: make([]ProjectDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[i-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		list.Projects = append(list.Projects, toDTO(row))
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProjectInput) (*ProjectDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}

	updates := map[string]any{}
	if input.ProjectName != nil {
		name := strings.TrimSpace(*input.ProjectName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name must not be empty")
		}
		updates["project_name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "project name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update project")
	}

	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload project")
	}
	dto := toDTO(*project)
	return &dto, nil
}

// Delete removes the project and its assembly links. Assemblies themselves
// are untouched.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if err := repo.DeleteLinks(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete project links")
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete project")
		}
		return nil
	})
}

func (s *service) LinkAssembly(ctx context.Context, projectID uuid.UUID, input LinkAssemblyInput) error {
	if projectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if input.AssemblyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assembly id required")
	}
	if input.QuantityToBuild != nil && *input.QuantityToBuild < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity to build must be at least 1")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, projectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		assembly, err := repo.FindAssembly(ctx, input.AssemblyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assembly not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assembly")
		}

		_, err = repo.FindLink(ctx, projectID, input.AssemblyID)
		switch {
		case err == nil:
			return pkgerrors.New(pkgerrors.CodeConflict, "assembly already linked to project")
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up link")
		}

		link := &models.ProjectAssembly{ID: uuid.New(), ProjectID: projectID, AssemblyID: input.AssemblyID}
		if err := repo.CreateLink(ctx, link); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "assembly already linked to project")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link assembly")
		}

		if input.QuantityToBuild != nil && *input.QuantityToBuild != assembly.QuantityToBuild {
			if err := repo.SetAssemblyBuildQuantity(ctx, input.AssemblyID, *input.QuantityToBuild); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update build quantity")
			}
			if _, err := s.recalc.RecalculateInTx(ctx, tx, input.AssemblyID); err != nil {
				return err
			}
		}
		return nil
	})
}

// UnlinkAssembly removes the link only; the assembly row is preserved.
// Unlinking an absent pair is a no-op.
func (s *service) UnlinkAssembly(ctx context.Context, projectID, assemblyID uuid.UUID) error {
	if projectID == uuid.Nil || assemblyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id and assembly id required")
	}
	if _, err := s.repo.DeleteLink(ctx, projectID, assemblyID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink assembly")
	}
	return nil
}

func (s *service) Summary(ctx context.Context, projectID uuid.UUID) (*ProjectSummary, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if _, err := s.repo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}

	assemblies, err := s.repo.SummaryAssemblies(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize assemblies")
	}
	orders, err := s.repo.SummaryOrders(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize orders")
	}
	materials, err := s.repo.SummaryMaterials(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize materials")
	}

	summary := &ProjectSummary{
		Assemblies: make([]SummaryAssemblyDTO, 0, len(assemblies)),
		Orders:     make([]SummaryOrderDTO, 0, len(orders)),
		Materials:  make([]MaterialDTO, 0, len(materials)),
	}
	for _, row := range assemblies {
		summary.Assemblies = append(summary.Assemblies, SummaryAssemblyDTO(row))
	}
	for _, row := range orders {
		summary.Orders = append(summary.Orders, SummaryOrderDTO(row))
	}
	for _, row := range materials {
		summary.Materials = append(summary.Materials, MaterialDTO(row))
	}
	return summary, nil
}

func (s *service) Parts(ctx context.Context, projectID uuid.UUID) ([]ProjectPartDTO, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if _, err := s.repo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}

	rows, err := s.repo.PartRows(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list project parts")
	}
	out := make([]ProjectPartDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ProjectPartDTO(row))
	}
	return out, nil
}
