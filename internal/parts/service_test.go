package parts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:parts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Part{}))
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePartInput{PartName: "CAP-100N", Quantity: 10})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreatePartInput{PartName: "CAP-100N"})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestCreateTrimsAndValidatesName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreatePartInput{PartName: "  LED-RED  ", Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, "LED-RED", created.PartName)

	_, err = svc.Create(ctx, CreatePartInput{PartName: "   "})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestUpdateOnlyTouchesProvidedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreatePartInput{PartName: "MCU-STM32", Quantity: 4})
	require.NoError(t, err)

	loc := "shelf B3"
	updated, err := svc.Update(ctx, created.ID, UpdatePartInput{Location: &loc})
	require.NoError(t, err)
	require.Equal(t, "MCU-STM32", updated.PartName)
	require.Equal(t, 4, updated.Quantity)
	require.NotNil(t, updated.Location)
	require.Equal(t, "shelf B3", *updated.Location)
}

func TestUpdateMissingPartIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	name := "GHOST"
	_, err := svc.Update(context.Background(), uuid.New(), UpdatePartInput{PartName: &name})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestBulkDeleteRefusesPartsWithStock(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	stocked, err := svc.Create(ctx, CreatePartInput{PartName: "RELAY-5V", Quantity: 3})
	require.NoError(t, err)
	empty, err := svc.Create(ctx, CreatePartInput{PartName: "RELAY-12V"})
	require.NoError(t, err)

	_, err = svc.BulkDelete(ctx, []uuid.UUID{stocked.ID, empty.ID})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	blocked, ok := appErr.Details().([]BlockedPart)
	require.True(t, ok)
	require.Len(t, blocked, 1)
	require.Equal(t, stocked.ID, blocked[0].ID)
	require.Equal(t, 3, blocked[0].Quantity)

	// nothing deleted
	var count int64
	require.NoError(t, db.Model(&models.Part{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	deleted, err := svc.BulkDelete(ctx, []uuid.UUID{empty.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		part := &models.Part{
			ID:        uuid.New(),
			PartName:  "BULK-" + uuid.NewString()[:8],
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(part).Error)
	}

	first, err := svc.List(ctx, ListPartsInput{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Parts, 3)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, ListPartsInput{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Parts, 2)
	require.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(first.Parts, second.Parts...) {
		require.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}

func TestListFiltersBySearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePartInput{PartName: "RES-1K"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreatePartInput{PartName: "CAP-1U"})
	require.NoError(t, err)

	list, err := svc.List(ctx, ListPartsInput{Search: "RES"})
	require.NoError(t, err)
	require.Len(t, list.Parts, 1)
	require.Equal(t, "RES-1K", list.Parts[0].PartName)
}
