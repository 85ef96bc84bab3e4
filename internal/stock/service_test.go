package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/pkg/db/models"
	pkgerrors "github.com/partshelf/partshelf-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Part{}))
	return db
}

func seedPart(t *testing.T, db *gorm.DB, quantity int) *models.Part {
	t.Helper()
	part := &models.Part{
		ID:       uuid.New(),
		PartName: "RES-10K-" + uuid.NewString()[:8],
		Quantity: quantity,
	}
	require.NoError(t, db.Create(part).Error)
	return part
}

func TestIncreaseAddsToFreePool(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	part := seedPart(t, db, 5)
	require.NoError(t, svc.Increase(context.Background(), part.ID, 7))

	var got models.Part
	require.NoError(t, db.First(&got, "id = ?", part.ID).Error)
	require.Equal(t, 12, got.Quantity)
}

func TestDecreaseGuardsAgainstShortPool(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	part := seedPart(t, db, 3)

	require.NoError(t, svc.Decrease(ctx, part.ID, 3))

	err = svc.Decrease(ctx, part.ID, 1)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())

	var got models.Part
	require.NoError(t, db.First(&got, "id = ?", part.ID).Error)
	require.Equal(t, 0, got.Quantity)
}

func TestDecreaseMissingPartIsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	err = svc.Decrease(context.Background(), uuid.New(), 1)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestAmountValidation(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()
	part := seedPart(t, db, 1)

	cases := []struct {
		name string
		run  func() error
	}{
		{"increase zero", func() error { return svc.Increase(ctx, part.ID, 0) }},
		{"increase negative", func() error { return svc.Increase(ctx, part.ID, -2) }},
		{"decrease zero", func() error { return svc.Decrease(ctx, part.ID, 0) }},
		{"decrease nil part", func() error { return svc.Decrease(ctx, uuid.Nil, 1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := pkgerrors.As(tc.run())
			if appErr == nil {
				t.Fatal("expected typed error")
			}
			if appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %s", appErr.Code())
			}
		})
	}
}
