package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Table names, in the order Load decodes them.
const (
	TableCustomer = "dim_customer"
	TableProduct  = "dim_product"
	TableOrder    = "dim_order"
	TableShipment = "dim_shipment"
	TableTime     = "dim_time"
	TableSales    = "fact_sales"
)

var Tables = []string{TableCustomer, TableProduct, TableOrder, TableShipment, TableTime, TableSales}

// Source returns the raw CSV text of a table.
type Source interface {
	Fetch(ctx context.Context, table string) (string, error)
	String() string
}

// DirSource reads <Dir>/<table>.csv from disk.
type DirSource struct {
	Dir string
}

func (s DirSource) Fetch(ctx context.Context, table string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(filepath.Join(s.Dir, table+".csv"))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s DirSource) String() string { return "dir:" + s.Dir }

// HTTPSource GETs <BaseURL>/<table>.csv, the way the browser dashboard pulled
// its static files.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) Fetch(ctx context.Context, table string) (string, error) {
	u, err := url.JoinPath(strings.TrimRight(s.BaseURL, "/"), table+".csv")
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s HTTPSource) String() string { return "http:" + s.BaseURL }
