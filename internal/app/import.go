package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bobmcallan/partsdesk/internal/common"
	"github.com/bobmcallan/partsdesk/internal/interfaces"
	"github.com/bobmcallan/partsdesk/internal/models"
	"github.com/shopspring/decimal"
)

// productColumns is the CSV layout written by ExportProducts. Imports match
// columns by header name, so extra or reordered columns are fine.
var productColumns = []string{
	"sku", "name", "kind", "brand", "category", "model",
	"capacity_ah", "voltage", "warranty_months",
	"cost_price", "sale_price", "stock", "reorder_level",
}

// ImportResult counts what a product import did. Errors lists rejected rows.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportProducts reads a product CSV. Rows whose SKU exists update the
// catalogue entry without touching stock; new SKUs are created with the
// stock column as opening stock. Bad rows are reported and skipped.
func ImportProducts(ctx context.Context, inventory interfaces.InventoryService, logger *common.Logger, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &ImportResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading products CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"sku", "name"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("products CSV has no %q column: %w", required, models.ErrInvalid)
		}
	}

	existing, err := inventory.ListProducts(ctx, interfaces.ProductFilter{})
	if err != nil {
		return nil, err
	}
	bySKU := make(map[string]*models.Product, len(existing))
	for _, p := range existing {
		bySKU[p.SKU] = p
	}

	result := &ImportResult{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return result, fmt.Errorf("reading products CSV line %d: %w", line, err)
		}

		sku := ""
		if i := cols["sku"]; i < len(rec) {
			sku = strings.ToUpper(strings.TrimSpace(rec[i]))
		}

		if current, ok := bySKU[sku]; ok && sku != "" {
			p, err := unmarshalProduct(rec, cols, *current)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			updated, err := inventory.UpdateProduct(ctx, current.ID, p)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			bySKU[updated.SKU] = updated
			result.Updated++
			continue
		}

		p, err := unmarshalProduct(rec, cols, models.Product{})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		created, err := inventory.CreateProduct(ctx, p)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		bySKU[created.SKU] = created
		result.Created++
	}

	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("rejected", len(result.Errors)).
		Msg("Products imported")
	return result, nil
}

// unmarshalProduct overlays the columns present in the header onto base, so
// an update file may carry only the columns it changes.
func unmarshalProduct(rec []string, cols map[string]int, base models.Product) (models.Product, error) {
	p := base
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok {
			return "", false
		}
		if i >= len(rec) {
			return "", true
		}
		return strings.TrimSpace(rec[i]), true
	}
	text := func(name string, dst *string) {
		if v, ok := field(name); ok {
			*dst = v
		}
	}
	number := func(name string, dst *int) error {
		v, ok := field(name)
		if !ok {
			return nil
		}
		if v == "" {
			*dst = 0
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a whole number", name, v)
		}
		*dst = n
		return nil
	}
	money := func(name string, dst *decimal.Decimal) error {
		v, ok := field(name)
		if !ok {
			return nil
		}
		if v == "" {
			*dst = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an amount", name, v)
		}
		*dst = d
		return nil
	}

	text("sku", &p.SKU)
	text("name", &p.Name)
	text("brand", &p.Brand)
	text("category", &p.Category)
	text("model", &p.Model)
	if v, ok := field("kind"); ok && v != "" {
		p.Kind = models.ProductKind(strings.ToLower(v))
	}

	for name, dst := range map[string]*int{
		"capacity_ah":     &p.CapacityAh,
		"voltage":         &p.Voltage,
		"warranty_months": &p.WarrantyMonths,
		"stock":           &p.Stock,
		"reorder_level":   &p.ReorderLevel,
	} {
		if err := number(name, dst); err != nil {
			return p, err
		}
	}
	if err := money("cost_price", &p.CostPrice); err != nil {
		return p, err
	}
	if err := money("sale_price", &p.SalePrice); err != nil {
		return p, err
	}
	return p, nil
}

// ExportProducts writes the catalogue as CSV in productColumns order.
func ExportProducts(ctx context.Context, inventory interfaces.InventoryService, w io.Writer) (int, error) {
	products, err := inventory.ListProducts(ctx, interfaces.ProductFilter{})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(productColumns); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	for i, p := range products {
		row := []string{
			p.SKU, p.Name, string(p.Kind), p.Brand, p.Category, p.Model,
			strconv.Itoa(p.CapacityAh), strconv.Itoa(p.Voltage), strconv.Itoa(p.WarrantyMonths),
			p.CostPrice.StringFixed(2), p.SalePrice.StringFixed(2),
			strconv.Itoa(p.Stock), strconv.Itoa(p.ReorderLevel),
		}
		if err := cw.Write(row); err != nil {
			return i, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return len(products), cw.Error()
}
