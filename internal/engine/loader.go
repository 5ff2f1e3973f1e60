package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/models"
)

// --- 1. LENIENT CSV PARSING ---

// Row is one parsed data line, keyed by header name.
// Numeric columns hold a float64, all others a string.
type Row map[string]any

// intCalendarFields are the calendar columns that are numbers despite not ending in _key.
var intCalendarFields = map[string]bool{
	"row_id":      true,
	"year":        true,
	"month":       true,
	"week":        true,
	"day":         true,
	"day_of_week": true,
	"day_of_year": true,
}

// IsNumericField reports whether a column is coerced to a number.
func IsNumericField(name string) bool {
	return name == "sales" || strings.HasSuffix(name, "_key") || intCalendarFields[name]
}

// parseNumber never fails: empty, garbage and non-finite values read as 0.
func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseTable splits comma-delimited text into rows. The first line names the
// fields; every later line, blank ones included, becomes a row. Quoted fields
// are not supported, so a value holding a comma shifts the columns after it.
func ParseTable(text string) []Row {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r", "")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	headers := strings.Split(lines[0], ",")
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := strings.Split(line, ",")
		row := make(Row, len(headers))
		for i, h := range headers {
			var v string
			if i < len(values) {
				v = strings.TrimSpace(values[i])
			}
			if IsNumericField(h) {
				row[h] = parseNumber(v)
			} else {
				row[h] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (r Row) text(name string) string {
	s, _ := r[name].(string)
	return s
}

func (r Row) number(name string) float64 {
	f, _ := r[name].(float64)
	return f
}

func (r Row) integer(name string) int {
	return int(r.number(name))
}

// --- 2. TYPED DECODERS ---

func decodeCustomers(rows []Row) []models.Customer {
	out := make([]models.Customer, len(rows))
	for i, r := range rows {
		out[i] = models.Customer{
			Key:        r.integer("customer_key"),
			Name:       r.text("customer_name"),
			Segment:    r.text("segment"),
			Country:    r.text("country"),
			City:       r.text("city"),
			State:      r.text("state"),
			PostalCode: r.text("postal_code"),
			Region:     r.text("region"),
		}
	}
	return out
}

func decodeProducts(rows []Row) []models.Product {
	out := make([]models.Product, len(rows))
	for i, r := range rows {
		out[i] = models.Product{
			Key:         r.integer("product_key"),
			Name:        r.text("product_name"),
			Category:    r.text("category"),
			SubCategory: r.text("sub_category"),
		}
	}
	return out
}

func decodeOrders(rows []Row) []models.Order {
	out := make([]models.Order, len(rows))
	for i, r := range rows {
		out[i] = models.Order{
			Key:       r.integer("order_key"),
			OrderID:   r.text("order_id"),
			OrderDate: r.text("order_date"),
		}
	}
	return out
}

func decodeShipments(rows []Row) []models.Shipment {
	out := make([]models.Shipment, len(rows))
	for i, r := range rows {
		out[i] = models.Shipment{
			Key:      r.integer("ship_key"),
			ShipMode: r.text("ship_mode"),
			ShipDate: r.text("ship_date"),
		}
	}
	return out
}

func decodeTime(rows []Row) []models.TimeDimension {
	out := make([]models.TimeDimension, len(rows))
	for i, r := range rows {
		out[i] = models.TimeDimension{
			Key:       r.integer("time_key"),
			Date:      r.text("date"),
			Year:      r.integer("year"),
			Quarter:   r.text("quarter"),
			Month:     r.integer("month"),
			MonthName: r.text("month_name"),
			Week:      r.integer("week"),
			Day:       r.integer("day"),
			DayOfWeek: r.integer("day_of_week"),
			DayOfYear: r.integer("day_of_year"),
		}
	}
	return out
}

func decodeSales(rows []Row) []models.SaleFact {
	out := make([]models.SaleFact, len(rows))
	for i, r := range rows {
		out[i] = models.SaleFact{
			RowID:       r.integer("row_id"),
			OrderKey:    r.integer("order_key"),
			CustomerKey: r.integer("customer_key"),
			ProductKey:  r.integer("product_key"),
			ShipKey:     r.integer("ship_key"),
			TimeKey:     r.integer("time_key"),
			Sales:       r.number("sales"),
		}
	}
	return out
}

// --- 3. MAIN LOADER ---

// Load fetches all six tables concurrently and parses them into a Dataset.
// The first fetch error cancels the others and fails the whole load.
func Load(ctx context.Context, src Source, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.InfoContext(ctx, "loading dataset", slog.String("source", src.String()))

	raw := make([]string, len(Tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range Tables {
		g.Go(func() error {
			text, err := src.Fetch(gctx, table)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", table, err)
			}
			raw[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "dataset load failed", slog.String("error", err.Error()))
		return nil, err
	}

	ds := NewDataset(
		decodeCustomers(ParseTable(raw[0])),
		decodeProducts(ParseTable(raw[1])),
		decodeOrders(ParseTable(raw[2])),
		decodeShipments(ParseTable(raw[3])),
		decodeTime(ParseTable(raw[4])),
		decodeSales(ParseTable(raw[5])),
	)

	logger.InfoContext(ctx, "dataset loaded",
		slog.Int("customers", len(ds.Customers)),
		slog.Int("products", len(ds.Products)),
		slog.Int("orders", len(ds.Orders)),
		slog.Int("shipments", len(ds.Shipments)),
		slog.Int("time", len(ds.Time)),
		slog.Int("sales", len(ds.Sales)),
		slog.Duration("elapsed", time.Since(start)))
	return ds, nil
}
