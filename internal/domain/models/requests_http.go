package models

// Requests for the core HTTP endpoints. Defined in domain for consistency and reuse.

type HistoricalRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Period   string `query:"period" json:"period" default:"1mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y 5y"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
}

type BatchDownloadRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1,max=100,dive,required"`
	Period   string   `json:"period" default:"1mo" validate:"oneof=5d 1mo 3mo 6mo 1y 2y 5y"`
	Interval string   `json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
}

type TrainRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	Period   string `json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y"`
	Interval string `json:"interval" default:"1d" validate:"oneof=1h 1d"`
}

type PredictRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	Horizon int    `json:"horizon" default:"1" validate:"gte=1,lte=30"`
	// Mode controls behavior on an untrained or stale model: "fail" returns
	// ModelNotReady, "train" trains synchronously first.
	Mode string `json:"mode" default:"fail" validate:"oneof=fail train"`
}

type BacktestRequest struct {
	Symbol       string  `json:"symbol" validate:"required"`
	Strategy     string  `json:"strategy" default:"ml_signal" validate:"oneof=ml_signal momentum mean_reversion"`
	StartCapital float64 `json:"startCapital" default:"100000" validate:"gt=0"`
	StartDate    string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Period       string  `json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y"`
	Interval     string  `json:"interval" default:"1d" validate:"oneof=1h 1d"`
}
