package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/events"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
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

func newTestService(t *testing.T, bus *events.Bus) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Part{}, &models.PartOrder{}))

	svc, err := NewService(NewRepository(db), stock.NewRepository(db), testTxRunner{db: db}, bus)
	require.NoError(t, err)
	return svc, db
}

func seedPart(t *testing.T, db *gorm.DB, name string, qty int) *models.Part {
	t.Helper()
	part := &models.Part{ID: uuid.New(), PartName: name, Quantity: qty}
	require.NoError(t, db.Create(part).Error)
	return part
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected typed error, got %v", err)
	require.Equal(t, code, appErr.Code())
}

func TestPlaceMergesSamePartAndDate(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	part := seedPart(t, db, "RELAY-5V", 0)

	first, err := svc.Place(ctx, PlaceOrderInput{PartID: part.ID, OrderDate: "2026-08-01", QuantityOrdered: 10})
	require.NoError(t, err)
	require.Equal(t, 10, first.QuantityOrdered)

	merged, err := svc.Place(ctx, PlaceOrderInput{PartID: part.ID, OrderDate: "2026-08-01", QuantityOrdered: 5})
	require.NoError(t, err)
	require.Equal(t, first.ID, merged.ID)
	require.Equal(t, 15, merged.QuantityOrdered)

	separate, err := svc.Place(ctx, PlaceOrderInput{PartID: part.ID, OrderDate: "2026-08-02", QuantityOrdered: 3})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, separate.ID)

	var count int64
	require.NoError(t, db.Model(&models.PartOrder{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestPlaceValidation(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	part := seedPart(t, db, "SWITCH", 0)

	cases := []struct {
		name  string
		input PlaceOrderInput
		code  pkgerrors.Code
	}{
		{"missing part id", PlaceOrderInput{OrderDate: "2026-08-01", QuantityOrdered: 1}, pkgerrors.CodeValidation},
		{"zero quantity", PlaceOrderInput{PartID: part.ID, OrderDate: "2026-08-01"}, pkgerrors.CodeValidation},
		{"bad date", PlaceOrderInput{PartID: part.ID, OrderDate: "01-08-2026", QuantityOrdered: 1}, pkgerrors.CodeValidation},
		{"unknown part", PlaceOrderInput{PartID: uuid.New(), OrderDate: "2026-08-01", QuantityOrdered: 1}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Place(ctx, tc.input)
			requireCode(t, err, tc.code)
		})
	}
}

func TestFulfillMovesStockAndDeletesOrder(t *testing.T) {
	bus := events.NewBus(4)
	defer bus.Close()
	fulfilled := bus.Subscribe(events.OrderFulfilled)

	svc, db := newTestService(t, bus)
	ctx := context.Background()
	part := seedPart(t, db, "ESP32", 2)

	order, err := svc.Place(ctx, PlaceOrderInput{PartID: part.ID, OrderDate: "2026-08-10", QuantityOrdered: 8})
	require.NoError(t, err)

	result, err := svc.Fulfill(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, part.ID, result.PartID)
	require.Equal(t, 8, result.Quantity)

	var reloaded models.Part
	require.NoError(t, db.First(&reloaded, "id = ?", part.ID).Error)
	require.Equal(t, 10, reloaded.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.PartOrder{}).Count(&count).Error)
	require.Zero(t, count)

	select {
	case event := <-fulfilled:
		payload, ok := event.Payload.(OrderFulfilledPayload)
		require.True(t, ok)
		require.Equal(t, order.ID, payload.OrderID)
		require.Equal(t, 8, payload.Quantity)
	default:
		t.Fatal("expected a fulfillment event")
	}

	_, err = svc.Fulfill(ctx, order.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListByPartOrdersByDateDesc(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	part := seedPart(t, db, "TVS-DIODE", 0)
	other := seedPart(t, db, "OTHER", 0)

	for _, date := range []string{"2026-07-01", "2026-07-15", "2026-07-08"} {
		_, err := svc.Place(ctx, PlaceOrderInput{PartID: part.ID, OrderDate: date, QuantityOrdered: 1})
		require.NoError(t, err)
	}
	_, err := svc.Place(ctx, PlaceOrderInput{PartID: other.ID, OrderDate: "2026-07-20", QuantityOrdered: 1})
	require.NoError(t, err)

	rows, err := svc.ListByPart(ctx, part.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "2026-07-15", rows[0].OrderDate)
	require.Equal(t, "2026-07-08", rows[1].OrderDate)
	require.Equal(t, "2026-07-01", rows[2].OrderDate)
}

func TestRecentJoinsPartNamesAndLimits(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()

	partA := seedPart(t, db, "PART-A", 0)
	partB := seedPart(t, db, "PART-B", 0)
	_, err := svc.Place(ctx, PlaceOrderInput{PartID: partA.ID, OrderDate: "2026-06-01", QuantityOrdered: 2})
	require.NoError(t, err)
	_, err = svc.Place(ctx, PlaceOrderInput{PartID: partB.ID, OrderDate: "2026-06-05", QuantityOrdered: 4})
	require.NoError(t, err)

	rows, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "PART-B", rows[0].PartName)
	require.Equal(t, "PART-A", rows[1].PartName)

	limited, err := svc.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "PART-B", limited[0].PartName)
}
