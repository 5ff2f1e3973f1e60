package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"salesdash/internal/models"
)

const (
	DefaultTopProducts = 10
	DefaultStateLimit  = 10
	RegionalStateLimit = 20
	UnknownProductName = "Unknown"
)

// accumulator keeps running totals per group key and remembers first-seen
// order so that ties come out stable after sorting.
type accumulator[K comparable] struct {
	order  []K
	totals map[K]float64
}

func newAccumulator[K comparable]() *accumulator[K] {
	return &accumulator[K]{totals: make(map[K]float64)}
}

func (a *accumulator[K]) add(key K, v float64) {
	if _, ok := a.totals[key]; !ok {
		a.order = append(a.order, key)
	}
	a.totals[key] += v
}

// cents rounds half away from zero. Only applied when a total is emitted.
func cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// SalesByMonth groups by YYYY-MM of the fact's calendar row, oldest first.
func SalesByMonth(facts []models.SaleFact, times []models.TimeDimension) []models.MonthlySales {
	timeByKey := indexTime(times)
	acc := newAccumulator[string]()
	for _, f := range facts {
		t, ok := timeByKey[f.TimeKey]
		if !ok {
			continue
		}
		acc.add(fmt.Sprintf("%d-%02d", t.Year, t.Month), f.Sales)
	}

	out := make([]models.MonthlySales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.MonthlySales{Date: k, Sales: cents(acc.totals[k])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func SalesByCategory(facts []models.SaleFact, products []models.Product) []models.CategorySales {
	productByKey := indexProducts(products)
	acc := newAccumulator[string]()
	for _, f := range facts {
		if p, ok := productByKey[f.ProductKey]; ok {
			acc.add(p.Category, f.Sales)
		}
	}

	out := make([]models.CategorySales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.CategorySales{Category: k, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return out
}

func SalesByRegion(facts []models.SaleFact, customers []models.Customer) []models.RegionSales {
	acc := groupByCustomer(facts, customers, func(c models.Customer) string { return c.Region })

	out := make([]models.RegionSales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.RegionSales{Region: k, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return out
}

func SalesBySegment(facts []models.SaleFact, customers []models.Customer) []models.SegmentSales {
	acc := groupByCustomer(facts, customers, func(c models.Customer) string { return c.Segment })

	out := make([]models.SegmentSales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.SegmentSales{Segment: k, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return out
}

// SalesByState returns the top limit states; limit <= 0 keeps them all.
func SalesByState(facts []models.SaleFact, customers []models.Customer, limit int) []models.StateSales {
	acc := groupByCustomer(facts, customers, func(c models.Customer) string { return c.State })

	out := make([]models.StateSales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.StateSales{State: k, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return truncate(out, limit)
}

type stateCategory struct {
	state, category string
}

// SalesByStateAndCategory needs both the customer and the product to resolve.
func SalesByStateAndCategory(facts []models.SaleFact, customers []models.Customer, products []models.Product, limit int) []models.StateCategorySales {
	customerByKey := indexCustomers(customers)
	productByKey := indexProducts(products)
	acc := newAccumulator[stateCategory]()
	for _, f := range facts {
		c, ok := customerByKey[f.CustomerKey]
		if !ok {
			continue
		}
		p, ok := productByKey[f.ProductKey]
		if !ok {
			continue
		}
		acc.add(stateCategory{c.State, p.Category}, f.Sales)
	}

	out := make([]models.StateCategorySales, 0, len(acc.order))
	for _, k := range acc.order {
		out = append(out, models.StateCategorySales{State: k.state, Category: k.category, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return truncate(out, limit)
}

// TopProducts groups by product key, not by resolved product, so facts whose
// key is missing from the dimension still show up under UnknownProductName.
func TopProducts(facts []models.SaleFact, products []models.Product, limit int) []models.ProductSales {
	if limit <= 0 {
		limit = DefaultTopProducts
	}
	productByKey := indexProducts(products)
	acc := newAccumulator[int]()
	for _, f := range facts {
		acc.add(f.ProductKey, f.Sales)
	}

	out := make([]models.ProductSales, 0, len(acc.order))
	for _, k := range acc.order {
		name := UnknownProductName
		if p, ok := productByKey[k]; ok && p.Name != "" {
			name = p.Name
		}
		out = append(out, models.ProductSales{Name: name, Sales: cents(acc.totals[k])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })
	return truncate(out, limit)
}

// Stats summarizes every fact. An empty slice gives all zeros.
func Stats(facts []models.SaleFact) models.SalesStats {
	if len(facts) == 0 {
		return models.SalesStats{}
	}
	total := 0.0
	maxV, minV := facts[0].Sales, facts[0].Sales
	for _, f := range facts {
		total += f.Sales
		maxV = max(maxV, f.Sales)
		minV = min(minV, f.Sales)
	}
	return models.SalesStats{
		Total:   cents(total),
		Average: cents(total / float64(len(facts))),
		Max:     cents(maxV),
		Min:     cents(minV),
		Count:   len(facts),
	}
}

func groupByCustomer(facts []models.SaleFact, customers []models.Customer, attr func(models.Customer) string) *accumulator[string] {
	customerByKey := indexCustomers(customers)
	acc := newAccumulator[string]()
	for _, f := range facts {
		if c, ok := customerByKey[f.CustomerKey]; ok {
			acc.add(attr(c), f.Sales)
		}
	}
	return acc
}

// Aggregate builds every dashboard series from the snapshot. Stats, monthly,
// category and region always cover all facts; the filter narrows states,
// segments and top products the way the dashboard's drill-downs do.
func (d *Dataset) Aggregate(f Filter) *models.DashboardData {
	regional := FilterByRegion(d.Sales, d.Customers, f.Region)
	stateLimit := DefaultStateLimit
	if f.Region != "" {
		stateLimit = RegionalStateLimit
	}

	return &models.DashboardData{
		Stats:         Stats(d.Sales),
		Monthly:       SalesByMonth(d.Sales, d.Time),
		Categories:    SalesByCategory(d.Sales, d.Products),
		Regions:       SalesByRegion(d.Sales, d.Customers),
		Segments:      SalesBySegment(FilterByCategory(d.Sales, d.Products, f.Category), d.Customers),
		States:        SalesByState(regional, d.Customers, DefaultStateLimit),
		StateCategory: SalesByStateAndCategory(regional, d.Customers, d.Products, stateLimit),
		TopProducts:   TopProducts(FilterByCategory(d.Sales, d.Products, f.ProductCategory), d.Products, DefaultTopProducts),
	}
}
