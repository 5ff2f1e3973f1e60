package engine

import (
	"errors"

	"salesdash/internal/models"
)

// ErrNoData is returned when an operation needs a dataset that has not been loaded.
var ErrNoData = errors.New("dataset not loaded")

// Dataset is an immutable snapshot of the six loaded tables.
// Nothing mutates a Dataset after NewDataset returns; a reload builds a new one.
type Dataset struct {
	Customers []models.Customer
	Products  []models.Product
	Orders    []models.Order
	Shipments []models.Shipment
	Time      []models.TimeDimension
	Sales     []models.SaleFact
}

func NewDataset(
	customers []models.Customer,
	products []models.Product,
	orders []models.Order,
	shipments []models.Shipment,
	time []models.TimeDimension,
	sales []models.SaleFact,
) *Dataset {
	return &Dataset{
		Customers: customers,
		Products:  products,
		Orders:    orders,
		Shipments: shipments,
		Time:      time,
		Sales:     sales,
	}
}

// Key indexes used by the aggregations. A missing key is reported through the
// map's ok result and the fact is skipped, never treated as an error.
// Later duplicates of a key win, matching a map built in row order.
func indexCustomers(rows []models.Customer) map[int]models.Customer {
	m := make(map[int]models.Customer, len(rows))
	for _, r := range rows {
		m[r.Key] = r
	}
	return m
}

func indexProducts(rows []models.Product) map[int]models.Product {
	m := make(map[int]models.Product, len(rows))
	for _, r := range rows {
		m[r.Key] = r
	}
	return m
}

func indexTime(rows []models.TimeDimension) map[int]models.TimeDimension {
	m := make(map[int]models.TimeDimension, len(rows))
	for _, r := range rows {
		m[r.Key] = r
	}
	return m
}

// RowCounts reports the number of records per table.
func (d *Dataset) RowCounts() map[string]int {
	return map[string]int{
		TableCustomer: len(d.Customers),
		TableProduct:  len(d.Products),
		TableOrder:    len(d.Orders),
		TableShipment: len(d.Shipments),
		TableTime:     len(d.Time),
		TableSales:    len(d.Sales),
	}
}
