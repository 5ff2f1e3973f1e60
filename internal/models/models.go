package models

// --- Dimension and fact records ---

type Customer struct {
	Key        int    `json:"customer_key"`
	Name       string `json:"customer_name"`
	Segment    string `json:"segment"`
	Country    string `json:"country"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Region     string `json:"region"`
}

type Product struct {
	Key         int    `json:"product_key"`
	Name        string `json:"product_name"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
}

type Order struct {
	Key       int    `json:"order_key"`
	OrderID   string `json:"order_id"`
	OrderDate string `json:"order_date"`
}

type Shipment struct {
	Key      int    `json:"ship_key"`
	ShipMode string `json:"ship_mode"`
	ShipDate string `json:"ship_date"`
}

// TimeDimension is one row of the conformed calendar.
// Quarter is kept as text ("Q1").
type TimeDimension struct {
	Key       int    `json:"time_key"`
	Date      string `json:"date"`
	Year      int    `json:"year"`
	Quarter   string `json:"quarter"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Week      int    `json:"week"`
	Day       int    `json:"day"`
	DayOfWeek int    `json:"day_of_week"`
	DayOfYear int    `json:"day_of_year"`
}

type SaleFact struct {
	RowID       int     `json:"row_id"`
	OrderKey    int     `json:"order_key"`
	CustomerKey int     `json:"customer_key"`
	ProductKey  int     `json:"product_key"`
	ShipKey     int     `json:"ship_key"`
	TimeKey     int     `json:"time_key"`
	Sales       float64 `json:"sales"`
}

// --- Aggregates ---

type MonthlySales struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type CategorySales struct {
	Category string  `json:"category"`
	Sales    float64 `json:"sales"`
}

type RegionSales struct {
	Region string  `json:"region"`
	Sales  float64 `json:"sales"`
}

type SegmentSales struct {
	Segment string  `json:"segment"`
	Sales   float64 `json:"sales"`
}

type StateSales struct {
	State string  `json:"state"`
	Sales float64 `json:"sales"`
}

type StateCategorySales struct {
	State    string  `json:"state"`
	Category string  `json:"category"`
	Sales    float64 `json:"sales"`
}

type ProductSales struct {
	Name  string  `json:"product_name"`
	Sales float64 `json:"sales"`
}

type SalesStats struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Count   int     `json:"count"`
}

// DashboardData bundles every aggregate the frontend renders on one page.
type DashboardData struct {
	Stats         SalesStats           `json:"stats"`
	Monthly       []MonthlySales       `json:"monthly_sales"`
	Categories    []CategorySales      `json:"categories"`
	Regions       []RegionSales        `json:"regions"`
	Segments      []SegmentSales       `json:"segments"`
	States        []StateSales         `json:"states"`
	StateCategory []StateCategorySales `json:"state_category"`
	TopProducts   []ProductSales       `json:"top_products"`
}
