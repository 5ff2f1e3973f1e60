package engine

import "salesdash/internal/models"

// Filter selects a single dimension value per drill-down. Empty fields mean
// "no filter".
type Filter struct {
	Category        string `query:"category"`
	Region          string `query:"region"`
	ProductCategory string `query:"product_category"`
}

// FilterByCategory keeps facts whose product category equals category.
// Facts with an unresolved product are dropped while a filter is active.
func FilterByCategory(facts []models.SaleFact, products []models.Product, category string) []models.SaleFact {
	if category == "" {
		return facts
	}
	productByKey := indexProducts(products)
	return filterFacts(facts, func(f models.SaleFact) bool {
		p, ok := productByKey[f.ProductKey]
		return ok && p.Category == category
	})
}

// FilterByRegion keeps facts whose customer region equals region.
func FilterByRegion(facts []models.SaleFact, customers []models.Customer, region string) []models.SaleFact {
	if region == "" {
		return facts
	}
	customerByKey := indexCustomers(customers)
	return filterFacts(facts, func(f models.SaleFact) bool {
		c, ok := customerByKey[f.CustomerKey]
		return ok && c.Region == region
	})
}

func filterFacts(facts []models.SaleFact, keep func(models.SaleFact) bool) []models.SaleFact {
	out := make([]models.SaleFact, 0, len(facts))
	for _, f := range facts {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
