package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "memory"
	a, err := New(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_WiresServices(t *testing.T) {
	a := newTestApp(t)

	assert.Equal(t, "memory", a.Storage.Backend())
	assert.NotNil(t, a.InventoryService)
	assert.NotNil(t, a.ReportService)
	assert.NotNil(t, a.UserService)

	stored, err := a.Storage.InternalStore().GetSystemKV(context.Background(), schemaVersionKey)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, stored)
}

func TestCheckSchemaVersion(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	kv := a.Storage.InternalStore()

	assert.False(t, checkSchemaVersion(ctx, a.Storage, a.Logger))

	require.NoError(t, kv.SetSystemKV(ctx, schemaVersionKey, "0"))
	assert.True(t, checkSchemaVersion(ctx, a.Storage, a.Logger))

	stored, err := kv.GetSystemKV(ctx, schemaVersionKey)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, stored)
}

func TestEnsureAdmin(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	password := a.EnsureAdmin(ctx)
	require.NotEmpty(t, password)
	assert.Empty(t, a.EnsureAdmin(ctx))

	_, err := a.UserService.Authenticate(ctx, "admin", password)
	assert.NoError(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "explicit.toml", ResolveConfigPath("explicit.toml"))

	t.Setenv("PARTSDESK_CONFIG", "/etc/partsdesk.toml")
	assert.Equal(t, "/etc/partsdesk.toml", ResolveConfigPath(""))
}

func TestNewApp_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partsdesk.toml")
	content := `
[storage]
backend = "memory"

[shop]
name = "Sri Ganesh Auto"

[logging]
level = "disabled"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	a, err := NewApp(path)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "Sri Ganesh Auto", a.Config.Shop.Name)
}

func TestNewApp_RefusesDefaultSecretInProduction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partsdesk.toml")
	require.NoError(t, os.WriteFile(path, []byte("environment = \"production\"\n[storage]\nbackend = \"memory\"\n"), 0644))

	_, err := NewApp(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

const productsCSV = `sku,name,kind,brand,warranty_months,cost_price,sale_price,stock,reorder_level
am-go35,Amaron Go 35Ah,battery,Amaron,24,3000,3900,5,2
OIL-4L,Engine oil 4L,,Castrol,,1200.50,1500,10,
BAD-1,Broken row,,,,abc,1,1,
,No sku,,,,1,1,1,
`

func TestImportProducts(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	res, err := ImportProducts(ctx, a.InventoryService, a.Logger, strings.NewReader(productsCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "line 4")
	assert.Contains(t, res.Errors[1], "line 5")

	batteries, err := a.InventoryService.ListProducts(ctx, interfaces.ProductFilter{Kind: models.KindBattery})
	require.NoError(t, err)
	require.Len(t, batteries, 1)
	assert.Equal(t, "AM-GO35", batteries[0].SKU)
	assert.Equal(t, 24, batteries[0].WarrantyMonths)
	assert.Equal(t, 5, batteries[0].Stock)

	// Re-import updates prices but never stock.
	again := "sku,name,sale_price,stock\nAM-GO35,Amaron Go 35Ah,4100,99\n"
	res, err = ImportProducts(ctx, a.InventoryService, a.Logger, strings.NewReader(again))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	p, err := a.InventoryService.GetProduct(ctx, batteries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "4100", p.SalePrice.String())
	assert.Equal(t, 5, p.Stock)
}

func TestImportProducts_MissingColumns(t *testing.T) {
	a := newTestApp(t)

	_, err := ImportProducts(context.Background(), a.InventoryService, a.Logger, strings.NewReader("code,title\nX,Y\n"))
	assert.ErrorIs(t, err, models.ErrInvalid)

	res, err := ImportProducts(context.Background(), a.InventoryService, a.Logger, strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, res.Created)
}

func TestExportProducts(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, err := ImportProducts(ctx, a.InventoryService, a.Logger, strings.NewReader(productsCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := ExportProducts(ctx, a.InventoryService, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, productColumns, rows[0])
	// sorted by name
	assert.Equal(t, "AM-GO35", rows[1][0])
	assert.Equal(t, "OIL-4L", rows[2][0])
	assert.Equal(t, "1200.50", rows[2][9])
}
