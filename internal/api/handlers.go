package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesdash/internal/engine"
	"salesdash/internal/export"
	"salesdash/internal/forecast"
	"salesdash/internal/metrics"
	"salesdash/internal/models"
)

const (
	msgLoadFailed = "failed to load data"
	msgLoading    = "data is still loading"
)

// Forecaster is the remote forecasting dependency.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (*forecast.Response, error)
}

// LoadFunc produces a fresh dataset snapshot.
type LoadFunc func(ctx context.Context) (*engine.Dataset, error)

type Options struct {
	Load           LoadFunc
	Forecaster     Forecaster
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	DefaultHorizon int
}

// Handler serves aggregates computed from the current snapshot. The snapshot
// is swapped atomically; a request sees either the old or the new one.
type Handler struct {
	data       atomic.Pointer[engine.Dataset]
	loadFailed atomic.Bool

	load       LoadFunc
	forecaster Forecaster
	metrics    *metrics.Metrics
	logger     *slog.Logger
	horizon    int
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.DefaultHorizon <= 0 {
		opts.DefaultHorizon = forecast.DefaultHorizon
	}
	return &Handler{
		load:       opts.Load,
		forecaster: opts.Forecaster,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With(slog.String("component", "api")),
		horizon:    opts.DefaultHorizon,
	}
}

// SetData replaces the served snapshot.
func (h *Handler) SetData(ds *engine.Dataset) {
	h.data.Store(ds)
	h.loadFailed.Store(false)
}

// Reload runs the load function and swaps in the result. On failure the
// previous snapshot, if any, keeps being served.
func (h *Handler) Reload(ctx context.Context) error {
	if h.load == nil {
		return errors.New("no loader configured")
	}
	start := time.Now()
	ds, err := h.load(ctx)
	if err != nil {
		h.metrics.ObserveLoad(time.Since(start), nil)
		if h.data.Load() == nil {
			h.loadFailed.Store(true)
		}
		return err
	}
	h.metrics.ObserveLoad(time.Since(start), ds.RowCounts())
	h.SetData(ds)
	return nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/reload", h.PostReload)

	data := api.Group("", h.requireData)
	data.GET("/stats", h.GetStats)
	data.GET("/sales/monthly", h.GetMonthlySales)
	data.GET("/sales/category", h.GetSalesByCategory)
	data.GET("/sales/region", h.GetSalesByRegion)
	data.GET("/sales/segment", h.GetSalesBySegment)
	data.GET("/sales/state", h.GetSalesByState)
	data.GET("/sales/state-category", h.GetSalesByStateAndCategory)
	data.GET("/products/top", h.GetTopProducts)
	data.GET("/dashboard", h.GetDashboard)
	data.GET("/export.xlsx", h.GetExport)
	data.POST("/forecast", h.PostForecast)
}

// --- MIDDLEWARE & HELPERS ---

const dataKey = "dataset"

// Snapshot returns the served dataset, or engine.ErrNoData before the first
// successful load.
func (h *Handler) Snapshot() (*engine.Dataset, error) {
	if ds := h.data.Load(); ds != nil {
		return ds, nil
	}
	return nil, engine.ErrNoData
}

func (h *Handler) requireData(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ds, err := h.Snapshot()
		if errors.Is(err, engine.ErrNoData) {
			if h.loadFailed.Load() {
				return echo.NewHTTPError(http.StatusServiceUnavailable, msgLoadFailed)
			}
			return echo.NewHTTPError(http.StatusServiceUnavailable, msgLoading)
		}
		c.Set(dataKey, ds)
		return next(c)
	}
}

func dataset(c echo.Context) *engine.Dataset {
	return c.Get(dataKey).(*engine.Dataset)
}

// limitParam reads ?limit=, falling back to def when missing or not positive.
func limitParam(c echo.Context, def int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"loaded": h.data.Load() != nil,
	})
}

func (h *Handler) PostReload(c echo.Context) error {
	if err := h.Reload(c.Request().Context()); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "reload failed", slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusServiceUnavailable, msgLoadFailed)
	}
	return c.JSON(http.StatusOK, h.data.Load().RowCounts())
}

func (h *Handler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, engine.Stats(dataset(c).Sales))
}

func (h *Handler) GetMonthlySales(c echo.Context) error {
	ds := dataset(c)
	return c.JSON(http.StatusOK, engine.SalesByMonth(ds.Sales, ds.Time))
}

func (h *Handler) GetSalesByCategory(c echo.Context) error {
	ds := dataset(c)
	out := engine.SalesByCategory(ds.Sales, ds.Products)
	if limit := limitParam(c, 0); limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetSalesByRegion(c echo.Context) error {
	ds := dataset(c)
	return c.JSON(http.StatusOK, engine.SalesByRegion(ds.Sales, ds.Customers))
}

// GetSalesBySegment accepts ?category= to drill into one product category.
func (h *Handler) GetSalesBySegment(c echo.Context) error {
	ds := dataset(c)
	facts := engine.FilterByCategory(ds.Sales, ds.Products, c.QueryParam("category"))
	return c.JSON(http.StatusOK, engine.SalesBySegment(facts, ds.Customers))
}

func (h *Handler) GetSalesByState(c echo.Context) error {
	ds := dataset(c)
	facts := engine.FilterByRegion(ds.Sales, ds.Customers, c.QueryParam("region"))
	return c.JSON(http.StatusOK, engine.SalesByState(facts, ds.Customers, limitParam(c, engine.DefaultStateLimit)))
}

func (h *Handler) GetSalesByStateAndCategory(c echo.Context) error {
	ds := dataset(c)
	region := c.QueryParam("region")
	def := engine.DefaultStateLimit
	if region != "" {
		def = engine.RegionalStateLimit
	}
	facts := engine.FilterByRegion(ds.Sales, ds.Customers, region)
	return c.JSON(http.StatusOK, engine.SalesByStateAndCategory(facts, ds.Customers, ds.Products, limitParam(c, def)))
}

func (h *Handler) GetTopProducts(c echo.Context) error {
	ds := dataset(c)
	facts := engine.FilterByCategory(ds.Sales, ds.Products, c.QueryParam("category"))
	return c.JSON(http.StatusOK, engine.TopProducts(facts, ds.Products, limitParam(c, engine.DefaultTopProducts)))
}

func (h *Handler) GetDashboard(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetExport(c echo.Context) error {
	data, err := h.dashboard(c)
	if err != nil {
		return err
	}
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="dashboard.xlsx"`)
	res.WriteHeader(http.StatusOK)
	return export.WriteWorkbook(res, data)
}

func (h *Handler) dashboard(c echo.Context) (*models.DashboardData, error) {
	var f engine.Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return dataset(c).Aggregate(f), nil
}

type forecastBody struct {
	Horizon int `json:"forecast_periods"`
}

// PostForecast sends the monthly series to the forecasting service and relays
// its answer. Only one call may be in flight.
func (h *Handler) PostForecast(c echo.Context) error {
	if h.forecaster == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "forecasting is not configured")
	}
	var body forecastBody
	if err := c.Bind(&body); err != nil {
		h.metrics.ObserveForecast("invalid")
		return err
	}
	if body.Horizon == 0 {
		body.Horizon = h.horizon
	}

	ds := dataset(c)
	req := forecast.Request{
		Series:  forecast.SeriesFromMonthly(engine.SalesByMonth(ds.Sales, ds.Time)),
		Horizon: body.Horizon,
	}
	resp, err := h.forecaster.Forecast(c.Request().Context(), req)
	if err != nil {
		return h.forecastError(err)
	}
	h.metrics.ObserveForecast("ok")
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) forecastError(err error) error {
	var apiErr *forecast.APIError
	switch {
	case errors.Is(err, forecast.ErrForecastBusy):
		h.metrics.ObserveForecast("busy")
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, forecast.ErrInvalidRequest):
		h.metrics.ObserveForecast("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &apiErr):
		h.metrics.ObserveForecast("error")
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Message)
	default:
		h.metrics.ObserveForecast("error")
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("failed to generate forecast: %v", err))
	}
}
