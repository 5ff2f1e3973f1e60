package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"salesdash/internal/models"
)

const DefaultHorizon = 12

var (
	// ErrForecastBusy is returned when a forecast is requested while another is in flight.
	ErrForecastBusy   = errors.New("forecast already running")
	ErrInvalidRequest = errors.New("invalid forecast request")
)

// APIError is a non-2xx answer from the forecasting service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client calls the remote forecasting endpoint. One call at a time: the busy
// flag is set for the whole round trip and cleared whatever the outcome.
type Client struct {
	url      string
	http     *http.Client
	validate *validator.Validate
	logger   *slog.Logger
	busy     atomic.Bool
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      url,
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "forecast_client")),
	}
}

// SeriesFromMonthly turns the monthly aggregate into the forecast input.
func SeriesFromMonthly(monthly []models.MonthlySales) []SeriesPoint {
	out := make([]SeriesPoint, len(monthly))
	for i, m := range monthly {
		out[i] = SeriesPoint{Date: m.Date, Value: m.Sales}
	}
	return out
}

// Busy reports whether a forecast call is outstanding.
func (c *Client) Busy() bool { return c.busy.Load() }

func (c *Client) Forecast(ctx context.Context, req Request) (*Response, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrForecastBusy
	}
	defer c.busy.Store(false)

	start := time.Now()
	resp, err := c.do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "forecast failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	c.logger.InfoContext(ctx, "forecast received",
		slog.Int("points", len(req.Series)),
		slog.Int("horizon", req.Horizon),
		slog.Int("forecast", len(resp.Forecast)),
		slog.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read forecast response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, newAPIError(httpResp, raw)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	return &out, nil
}

// newAPIError prefers the service's own "error" text and falls back to the
// HTTP status when the body carries none.
func newAPIError(resp *http.Response, raw []byte) *APIError {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)

	msg := body.Error
	if msg == "" {
		status := http.StatusText(resp.StatusCode)
		if status == "" {
			status = resp.Status
		}
		msg = "forecast service error: " + status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
