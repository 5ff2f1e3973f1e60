package forecast

// SeriesPoint is one observation sent to the forecasting service.
type SeriesPoint struct {
	Date  string  `json:"date" validate:"required"`
	Value float64 `json:"sales"`
}

// Request is the wire body of a forecast call.
type Request struct {
	Series  []SeriesPoint `json:"sales_data" validate:"required,min=1,dive"`
	Horizon int           `json:"forecast_periods" validate:"min=1,max=120"`
}

type HistoricalPoint struct {
	Date   string   `json:"date"`
	Actual float64  `json:"actual"`
	Fitted *float64 `json:"predicted"`
}

type ForecastPoint struct {
	Date  string  `json:"date"`
	Point float64 `json:"forecast"`
	Lower float64 `json:"forecast_lower"`
	Upper float64 `json:"forecast_upper"`
}

type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"trend"`
}

// Metrics are the in-sample fit scores the service computes.
type Metrics struct {
	R2                float64 `json:"r2"`
	MAE               float64 `json:"mae"`
	MSE               float64 `json:"mse"`
	RMSE              float64 `json:"rmse"`
	MSLE              float64 `json:"msle"`
	MAPE              float64 `json:"mape"`
	Accuracy          float64 `json:"accuracy"`
	MedAE             float64 `json:"medae"`
	MaxError          float64 `json:"max_error"`
	ExplainedVariance float64 `json:"explained_variance"`
	MeanPinballLoss   float64 `json:"mean_pinball_loss"`
	D2Tweedie         float64 `json:"d2_tweedie"`
	D2Pinball         float64 `json:"d2_pinball"`
}

type Meta struct {
	Records int `json:"total_records"`
	Horizon int `json:"forecast_periods"`
}

// Response is relayed to callers untouched; none of the numbers are checked.
type Response struct {
	Success    bool              `json:"success"`
	Historical []HistoricalPoint `json:"historical_data"`
	Forecast   []ForecastPoint   `json:"future_forecast"`
	Trend      []TrendPoint      `json:"trend"`
	Metrics    Metrics           `json:"metrics"`
	Meta       Meta              `json:"data_info"`
}
