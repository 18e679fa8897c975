package api

import (
	"strconv"

	"MarketLab/internal/domain/models"
	"MarketLab/internal/usecase"
	xhttp "MarketLab/pkg/http"
	xlogger "MarketLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictionHandler exposes ensemble training and prediction endpoints.
type PredictionHandler struct {
	logger *xlogger.Logger
	uc     *usecase.PredictionUseCase
}

func NewPredictionHandler(logger *xlogger.Logger, uc *usecase.PredictionUseCase) *PredictionHandler {
	return &PredictionHandler{logger: logger, uc: uc}
}

func (h *PredictionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/train", h.Train)
	g.POST("/predict", h.Predict)
	g.GET("/models/:symbol", h.ModelHistory)
}

func (h *PredictionHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.uc.Train(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("training failed",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MapDomainError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *PredictionHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pred, err := h.uc.Predict(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("prediction failed",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MapDomainError(err))
	}
	return xhttp.SuccessResponse(c, pred)
}

func (h *PredictionHandler) ModelHistory(c echo.Context) error {
	symbol := c.Param("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	arts, err := h.uc.ModelHistory(c.Request().Context(), symbol, limit)
	if err != nil {
		h.logger.Error("model history lookup failed",
			xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MapDomainError(err))
	}
	return xhttp.SuccessResponse(c, arts)
}
