package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/data/", http.FileServer(http.Dir("testdata"))))
	defer srv.Close()

	src := HTTPSource{BaseURL: srv.URL + "/data/", Client: srv.Client()}
	text, err := src.Fetch(context.Background(), TableProduct)
	require.NoError(t, err)

	want, err := os.ReadFile("testdata/dim_product.csv")
	require.NoError(t, err)
	assert.Equal(t, string(want), text)
}

func TestHTTPSource_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := HTTPSource{BaseURL: srv.URL}.Fetch(context.Background(), TableSales)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "fact_sales.csv")
}

func TestLoad_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.FileServer(http.Dir("testdata")))
	defer srv.Close()

	ds, err := Load(context.Background(), HTTPSource{BaseURL: srv.URL, Client: srv.Client()}, nil)

	require.NoError(t, err)
	assert.Len(t, ds.Sales, 6)
	assert.Equal(t, "Apple Phone", ds.Products[3].Name)
}

func TestDirSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DirSource{Dir: "testdata"}.Fetch(ctx, TableCustomer)

	assert.ErrorIs(t, err, context.Canceled)
}
