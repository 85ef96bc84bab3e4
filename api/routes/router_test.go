package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partshelf/partshelf-backend/internal/aliases"
	"github.com/partshelf/partshelf-backend/internal/allocation"
	"github.com/partshelf/partshelf-backend/internal/assemblies"
	"github.com/partshelf/partshelf-backend/internal/bom"
	"github.com/partshelf/partshelf-backend/internal/events"
	"github.com/partshelf/partshelf-backend/internal/orders"
	"github.com/partshelf/partshelf-backend/internal/parts"
	"github.com/partshelf/partshelf-backend/internal/projects"
	"github.com/partshelf/partshelf-backend/internal/stock"
	"github.com/partshelf/partshelf-backend/pkg/config"
	"github.com/partshelf/partshelf-backend/pkg/db/models"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx.WithContext(ctx))
	})
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Part{}, &models.Assembly{}, &models.AssemblyPart{},
		&models.Alias{}, &models.AliasLink{},
		&models.PartOrder{}, &models.Project{}, &models.ProjectAssembly{},
	))

	runner := testTxRunner{db: gdb}
	stockRepo := stock.NewRepository(gdb)
	partsRepo := parts.NewRepository(gdb)

	partsSvc, err := parts.NewService(partsRepo)
	require.NoError(t, err)
	aliasSvc, err := aliases.NewService(aliases.NewRepository(gdb), runner)
	require.NoError(t, err)
	bus := events.NewBus(16)
	t.Cleanup(bus.Close)
	allocationSvc, err := allocation.NewService(allocation.NewRepository(gdb), stockRepo, runner, bus, nil, aliasSvc)
	require.NoError(t, err)
	bomSvc, err := bom.NewService(bom.NewRepository(gdb), partsRepo, stockRepo, runner, allocationSvc)
	require.NoError(t, err)
	assemblySvc, err := assemblies.NewService(assemblies.NewRepository(gdb), stockRepo, runner, allocationSvc)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(gdb), stockRepo, runner, bus)
	require.NoError(t, err)
	projectSvc, err := projects.NewService(projects.NewRepository(gdb), runner, allocationSvc)
	require.NoError(t, err)

	cfg := &config.Config{App: config.AppConfig{Env: "test", Port: "0"}}
	handler := NewRouter(cfg, nil, okPinger{}, nil, Services{
		Parts:      partsSvc,
		Assemblies: assemblySvc,
		BOM:        bomSvc,
		Allocation: allocationSvc,
		Aliases:    aliasSvc,
		Orders:     orderSvc,
		Projects:   projectSvc,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, gdb
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthAndPing(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/health/live", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "live", body["data"].(map[string]any)["status"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", body["data"].(map[string]any)["status"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/ping", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "pong", body["data"].(map[string]any)["message"])
}

func TestPartLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/parts", map[string]any{
		"part_name": "RES-10K",
		"quantity":  25,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := body["data"].(map[string]any)
	partID := created["id"].(string)
	require.Equal(t, "RES-10K", created["part_name"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/parts", map[string]any{
		"part_name": "RES-10K",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])

	resp, body = doJSON(t, http.MethodPatch, server.URL+"/api/parts/"+partID, map[string]any{
		"manufacturer": "Yageo",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Yageo", body["data"].(map[string]any)["manufacturer"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/parts?search=RES", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["data"].(map[string]any)["parts"], 1)

	// a part with stock cannot be deleted
	resp, body = doJSON(t, http.MethodDelete, server.URL+"/api/parts", map[string]any{
		"ids": []string{partID},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body["error"].(map[string]any)["details"])
}

func TestAllocationFlowOverHTTP(t *testing.T) {
	server, gdb := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/assemblies", map[string]any{
		"assembly_name":     "Amp",
		"quantity_to_build": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assemblyID := body["data"].(map[string]any)["id"].(string)

	part := &models.Part{ID: uuid.New(), PartName: "CAP-1U", Quantity: 10}
	require.NoError(t, gdb.Create(part).Error)

	// upsert by name against an existing part
	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/assemblies/"+assemblyID+"/bom", map[string]any{
		"part_name":    "CAP-1U",
		"quantity_per": 3,
		"reference":    "C1-C3",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, part.ID.String(), body["data"].(map[string]any)["part_id"])

	allocateURL := fmt.Sprintf("%s/api/assemblies/%s/bom/%s/allocate", server.URL, assemblyID, part.ID)
	resp, body = doJSON(t, http.MethodPut, allocateURL, map[string]any{"amount": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["data"].(map[string]any)
	require.EqualValues(t, 4, result["allocated_quantity"])
	require.Equal(t, "In Progress", result["status"])

	// free pool is 6 now; asking for 7 must fail and change nothing
	resp, body = doJSON(t, http.MethodPut, allocateURL, map[string]any{"amount": 7})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "INSUFFICIENT_STOCK", body["error"].(map[string]any)["code"])

	var reloaded models.Part
	require.NoError(t, gdb.First(&reloaded, "id = ?", part.ID).Error)
	require.Equal(t, 6, reloaded.Quantity)

	// completing the requirement flips the status
	resp, body = doJSON(t, http.MethodPut, allocateURL, map[string]any{"amount": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Completed", body["data"].(map[string]any)["status"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/assemblies/"+assemblyID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := body["data"].(map[string]any)
	lines := detail["lines"].([]any)
	require.Len(t, lines, 1)
	require.EqualValues(t, 6, lines[0].(map[string]any)["required_quantity"])
}

func TestOrderAndAliasEndpoints(t *testing.T) {
	server, gdb := newTestServer(t)

	part := &models.Part{ID: uuid.New(), PartName: "LDO-3V3", Quantity: 1}
	require.NoError(t, gdb.Create(part).Error)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/part_orders", map[string]any{
		"part_id":          part.ID.String(),
		"order_date":       "2026-08-20",
		"quantity_ordered": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["data"].(map[string]any)["id"].(string)

	resp, body = doJSON(t, http.MethodPatch, server.URL+"/api/part_orders/"+orderID+"/fulfill", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 5, body["data"].(map[string]any)["quantity"])

	var reloaded models.Part
	require.NoError(t, gdb.First(&reloaded, "id = ?", part.ID).Error)
	require.Equal(t, 6, reloaded.Quantity)

	// merge two loose parts into a group named after the target
	other := &models.Part{ID: uuid.New(), PartName: "ldo-5v0", Quantity: 0}
	require.NoError(t, gdb.Create(other).Error)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/parts/merge", map[string]any{
		"source_part_id": part.ID.String(),
		"target_part_id": other.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/parts/"+part.ID.String()+"/alias", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "LDO-5V0", body["data"].(map[string]any)["alias_name"])
}
