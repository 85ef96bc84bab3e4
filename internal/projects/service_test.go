package projects

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/allocation"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
	"github.com/partshelf/partshelf-backend/pkg/enums"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx.WithContext(ctx))
	})
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:projects_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Part{}, &models.Assembly{}, &models.AssemblyPart{},
		&models.PartOrder{}, &models.Project{}, &models.ProjectAssembly{},
	))

	runner := testTxRunner{db: db}
	recalc, err := allocation.NewService(allocation.NewRepository(db), stock.NewRepository(db), runner, nil, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), runner, recalc)
	require.NoError(t, err)
	return svc, db
}

func seedAssembly(t *testing.T, db *gorm.DB, name string, buildQty int) *models.Assembly {
	t.Helper()
	assembly := &models.Assembly{
		ID:              uuid.New(),
		AssemblyName:    name,
		QuantityToBuild: buildQty,
		Status:          enums.AssemblyStatusPlanned,
	}
	require.NoError(t, db.Create(assembly).Error)
	return assembly
}

func seedPart(t *testing.T, db *gorm.DB, name string, qty int) *models.Part {
	t.Helper()
	part := &models.Part{ID: uuid.New(), PartName: name, Quantity: qty}
	require.NoError(t, db.Create(part).Error)
	return part
}

func seedLine(t *testing.T, db *gorm.DB, assemblyID, partID uuid.UUID, per, allocated int) {
	t.Helper()
	require.NoError(t, db.Create(&models.AssemblyPart{
		ID:                uuid.New(),
		AssemblyID:        assemblyID,
		PartID:            partID,
		QuantityPer:       per,
		AllocatedQuantity: allocated,
	}).Error)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected typed error, got %v", err)
	require.Equal(t, code, appErr.Code())
}

func TestCreateAndUpdateProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProjectInput{ProjectName: "  Drone  "})
	require.NoError(t, err)
	require.Equal(t, "Drone", created.ProjectName)

	_, err = svc.Create(ctx, CreateProjectInput{ProjectName: "Drone"})
	requireCode(t, err, pkgerrors.CodeConflict)

	desc := "quadcopter build"
	updated, err := svc.Update(ctx, created.ID, UpdateProjectInput{Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	require.Equal(t, desc, *updated.Description)
	require.Equal(t, "Drone", updated.ProjectName)

	_, err = svc.Update(ctx, uuid.New(), UpdateProjectInput{Description: &desc})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestLinkAssemblyRejectsDuplicates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Rig"})
	require.NoError(t, err)
	assembly := seedAssembly(t, db, "Frame", 1)

	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assembly.ID}))

	err = svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assembly.ID})
	requireCode(t, err, pkgerrors.CodeConflict)

	err = svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestLinkAssemblyRetargetsBuildQuantity(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Batch"})
	require.NoError(t, err)
	assembly := seedAssembly(t, db, "Board", 1)
	part := seedPart(t, db, "IC-1", 0)
	seedLine(t, db, assembly.ID, part.ID, 5, 5)
	require.NoError(t, db.Model(&models.Assembly{}).
		Where("id = ?", assembly.ID).
		Update("status", enums.AssemblyStatusCompleted).Error)

	newQty := 2
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{
		AssemblyID:      assembly.ID,
		QuantityToBuild: &newQty,
	}))

	var reloaded models.Assembly
	require.NoError(t, db.First(&reloaded, "id = ?", assembly.ID).Error)
	require.Equal(t, 2, reloaded.QuantityToBuild)
	require.Equal(t, enums.AssemblyStatusInProgress, reloaded.Status)
}

func TestUnlinkPreservesAssembly(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Rig"})
	require.NoError(t, err)
	assembly := seedAssembly(t, db, "Frame", 1)
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assembly.ID}))

	require.NoError(t, svc.UnlinkAssembly(ctx, project.ID, assembly.ID))
	// unlinking again is a no-op
	require.NoError(t, svc.UnlinkAssembly(ctx, project.ID, assembly.ID))

	var links int64
	require.NoError(t, db.Model(&models.ProjectAssembly{}).Count(&links).Error)
	require.Zero(t, links)

	var assemblies int64
	require.NoError(t, db.Model(&models.Assembly{}).Count(&assemblies).Error)
	require.EqualValues(t, 1, assemblies)
}

func TestDeleteProjectRemovesLinksOnly(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Gone"})
	require.NoError(t, err)
	assembly := seedAssembly(t, db, "Survivor", 1)
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assembly.ID}))

	require.NoError(t, svc.Delete(ctx, project.ID))

	var links, assemblies int64
	require.NoError(t, db.Model(&models.ProjectAssembly{}).Count(&links).Error)
	require.Zero(t, links)
	require.NoError(t, db.Model(&models.Assembly{}).Count(&assemblies).Error)
	require.EqualValues(t, 1, assemblies)

	err = svc.Delete(ctx, project.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSummaryAggregatesMaterialsAndOrders(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Robot"})
	require.NoError(t, err)

	armBoard := seedAssembly(t, db, "Arm", 2)
	legBoard := seedAssembly(t, db, "Leg", 3)
	outside := seedAssembly(t, db, "Unrelated", 1)
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: armBoard.ID}))
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: legBoard.ID}))

	shared := seedPart(t, db, "SERVO", 12)
	unrelated := seedPart(t, db, "NOT-MINE", 5)
	seedLine(t, db, armBoard.ID, shared.ID, 2, 1) // requires 4
	seedLine(t, db, legBoard.ID, shared.ID, 4, 3) // requires 12
	seedLine(t, db, outside.ID, unrelated.ID, 9, 0)

	require.NoError(t, db.Create(&models.PartOrder{
		ID: uuid.New(), PartID: shared.ID, OrderDate: "2026-08-01", QuantityOrdered: 6,
	}).Error)
	require.NoError(t, db.Create(&models.PartOrder{
		ID: uuid.New(), PartID: unrelated.ID, OrderDate: "2026-08-02", QuantityOrdered: 1,
	}).Error)

	summary, err := svc.Summary(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, summary.Assemblies, 2)

	require.Len(t, summary.Materials, 1)
	material := summary.Materials[0]
	require.Equal(t, shared.ID, material.PartID)
	require.Equal(t, 16, material.TotalRequired) // 2*2 + 4*3
	require.Equal(t, 12, material.CurrentStock)
	require.Equal(t, 4, material.AllocatedQuantity)

	// only orders for parts the project consumes
	require.Len(t, summary.Orders, 1)
	require.Equal(t, shared.ID, summary.Orders[0].PartID)

	_, err = svc.Summary(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestPartsFlattensAllLinkedAssemblies(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	project, err := svc.Create(ctx, CreateProjectInput{ProjectName: "Flat"})
	require.NoError(t, err)
	assemblyA := seedAssembly(t, db, "A", 1)
	assemblyB := seedAssembly(t, db, "B", 2)
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assemblyA.ID}))
	require.NoError(t, svc.LinkAssembly(ctx, project.ID, LinkAssemblyInput{AssemblyID: assemblyB.ID}))

	partX := seedPart(t, db, "X", 10)
	partY := seedPart(t, db, "Y", 20)
	seedLine(t, db, assemblyA.ID, partX.ID, 1, 0)
	seedLine(t, db, assemblyB.ID, partX.ID, 2, 1)
	seedLine(t, db, assemblyB.ID, partY.ID, 3, 0)

	rows, err := svc.Parts(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "A", rows[0].AssemblyName)
	require.Equal(t, "X", rows[0].PartName)
	require.Equal(t, "B", rows[1].AssemblyName)
	require.Equal(t, "X", rows[1].PartName)
	require.Equal(t, "Y", rows[2].PartName)
	require.Equal(t, 2, rows[1].QuantityToBuild)
	require.Equal(t, 10, rows[1].StockQuantity)
}
