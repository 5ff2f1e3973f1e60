package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdash/internal/engine"
	"salesdash/internal/forecast"
	"salesdash/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func loadTestdata(ctx context.Context) (*engine.Dataset, error) {
	return engine.Load(ctx, engine.DirSource{Dir: "../engine/testdata"}, quiet)
}

type fakeForecaster struct {
	got  forecast.Request
	resp *forecast.Response
	err  error
}

func (f *fakeForecaster) Forecast(_ context.Context, req forecast.Request) (*forecast.Response, error) {
	f.got = req
	return f.resp, f.err
}

func newTestServer(t *testing.T, opts Options) (*echo.Echo, *Handler) {
	t.Helper()
	if opts.Load == nil {
		opts.Load = loadTestdata
	}
	opts.Logger = quiet
	h := NewHandler(opts)
	return NewServer(h, []string{"*"}, quiet), h
}

func newLoadedServer(t *testing.T, opts Options) *echo.Echo {
	t.Helper()
	e, h := newTestServer(t, opts)
	require.NoError(t, h.Reload(context.Background()))
	return e
}

func do(e *echo.Echo, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRequireData_Loading(t *testing.T) {
	e, h := newTestServer(t, Options{})
	_, err := h.Snapshot()
	assert.ErrorIs(t, err, engine.ErrNoData)

	rec := do(e, http.MethodGet, "/api/stats", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrorResponse{Error: msgLoading}, decode[ErrorResponse](t, rec))
}

func TestRequireData_LoadFailed(t *testing.T) {
	e, h := newTestServer(t, Options{Load: func(context.Context) (*engine.Dataset, error) {
		return nil, errors.New("disk on fire")
	}})
	require.Error(t, h.Reload(context.Background()))

	rec := do(e, http.MethodGet, "/api/sales/monthly", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrorResponse{Error: msgLoadFailed}, decode[ErrorResponse](t, rec))
}

func TestReload_KeepsSnapshotOnFailure(t *testing.T) {
	fail := false
	e, h := newTestServer(t, Options{Load: func(ctx context.Context) (*engine.Dataset, error) {
		if fail {
			return nil, errors.New("gone")
		}
		return loadTestdata(ctx)
	}})
	require.NoError(t, h.Reload(context.Background()))

	fail = true
	rec := do(e, http.MethodPost, "/api/reload", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(e, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostReload(t *testing.T) {
	e, _ := newTestServer(t, Options{})

	rec := do(e, http.MethodPost, "/api/reload", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	counts := decode[map[string]int](t, rec)
	assert.Equal(t, 6, counts[engine.TableSales])
	assert.Equal(t, 4, counts[engine.TableProduct])
}

func TestHealth(t *testing.T) {
	e, h := newTestServer(t, Options{})

	rec := do(e, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","loaded":false}`, rec.Body.String())

	require.NoError(t, h.Reload(context.Background()))
	rec = do(e, http.MethodGet, "/api/health", nil)
	assert.JSONEq(t, `{"status":"ok","loaded":true}`, rec.Body.String())
}

func TestEndpoints(t *testing.T) {
	e := newLoadedServer(t, Options{})

	tests := []struct {
		target string
		want   string
	}{
		{"/api/stats", `{"total":2088.47,"average":348.08,"max":957.58,"min":14.62,"count":6}`},
		{"/api/sales/monthly", `[{"date":"2015-11","sales":979.95},{"date":"2016-06","sales":114.62},{"date":"2016-11","sales":993.9}]`},
		{"/api/sales/category?limit=2", `[{"category":"Technology","sales":1057.58},{"category":"Furniture","sales":993.9}]`},
		{"/api/sales/region", `[{"region":"South","sales":1973.85},{"region":"West","sales":14.62}]`},
		{"/api/sales/segment?category=Furniture", `[{"segment":"Consumer","sales":993.9}]`},
		{"/api/sales/state?region=South", `[{"state":"Kentucky","sales":993.9},{"state":"Florida","sales":979.95}]`},
		{"/api/sales/state?limit=1", `[{"state":"Kentucky","sales":993.9}]`},
		{"/api/sales/state-category?region=West", `[{"state":"California","category":"Office Supplies","sales":14.62}]`},
		{"/api/products/top?limit=2", `[{"product_name":"Apple Phone","sales":1057.58},{"product_name":"Hon Deluxe Chair","sales":731.94}]`},
		{"/api/products/top?category=Office%20Supplies", `[{"product_name":"Self-Adhesive Labels","sales":36.99}]`},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestBadLimitFallsBackToDefault(t *testing.T) {
	e := newLoadedServer(t, Options{})

	rec := do(e, http.MethodGet, "/api/products/top?limit=abc", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ProductSales](t, rec), 4)
}

func TestGetDashboard(t *testing.T) {
	e := newLoadedServer(t, Options{})

	rec := do(e, http.MethodGet, "/api/dashboard?region=South&product_category=Furniture", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[models.DashboardData](t, rec)
	assert.Equal(t, 6, data.Stats.Count)
	assert.Len(t, data.Monthly, 3)
	assert.Len(t, data.States, 2)
	assert.Equal(t, []models.ProductSales{
		{Name: "Hon Deluxe Chair", Sales: 731.94},
		{Name: "Bush Somerset Bookcase", Sales: 261.96},
	}, data.TopProducts)
}

func TestGetExport(t *testing.T) {
	e := newLoadedServer(t, Options{})

	rec := do(e, http.MethodGet, "/api/export.xlsx", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "dashboard.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Regions")
	require.NoError(t, err)
	assert.Equal(t, []string{"South", "1973.85"}, rows[1])
}

func TestPostForecast(t *testing.T) {
	fitted := 970.0
	fc := &fakeForecaster{resp: &forecast.Response{
		Success:    true,
		Historical: []forecast.HistoricalPoint{{Date: "2015-11", Actual: 979.95, Fitted: &fitted}},
		Forecast:   []forecast.ForecastPoint{{Date: "2016-12", Point: 500, Lower: 400, Upper: 600}},
		Meta:       forecast.Meta{Records: 3, Horizon: 6},
	}}
	e := newLoadedServer(t, Options{Forecaster: fc})

	rec := do(e, http.MethodPost, "/api/forecast", strings.NewReader(`{"forecast_periods":6}`))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 6, fc.got.Horizon)
	assert.Equal(t, []forecast.SeriesPoint{
		{Date: "2015-11", Value: 979.95},
		{Date: "2016-06", Value: 114.62},
		{Date: "2016-11", Value: 993.9},
	}, fc.got.Series)

	resp := decode[forecast.Response](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 500.0, resp.Forecast[0].Point)
	assert.Equal(t, 3, resp.Meta.Records)
}

func TestPostForecast_DefaultHorizon(t *testing.T) {
	fc := &fakeForecaster{resp: &forecast.Response{Success: true}}
	e := newLoadedServer(t, Options{Forecaster: fc, DefaultHorizon: 18})

	rec := do(e, http.MethodPost, "/api/forecast", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 18, fc.got.Horizon)
}

func TestPostForecast_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"busy", forecast.ErrForecastBusy, http.StatusConflict, forecast.ErrForecastBusy.Error()},
		{"invalid", forecast.ErrInvalidRequest, http.StatusBadRequest, forecast.ErrInvalidRequest.Error()},
		{"service error", &forecast.APIError{StatusCode: 400, Message: "bad input"}, http.StatusBadGateway, "bad input"},
		{"unreachable", errors.New("connection refused"), http.StatusBadGateway, "failed to generate forecast: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newLoadedServer(t, Options{Forecaster: &fakeForecaster{err: tt.err}})

			rec := do(e, http.MethodPost, "/api/forecast", bytes.NewReader([]byte(`{}`)))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, ErrorResponse{Error: tt.wantMsg}, decode[ErrorResponse](t, rec))
		})
	}
}

func TestPostForecast_NotConfigured(t *testing.T) {
	e := newLoadedServer(t, Options{})

	rec := do(e, http.MethodPost, "/api/forecast", nil)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newLoadedServer(t, Options{})

	rec := do(e, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `salesdash_table_rows{table="fact_sales"} 6`)
}
