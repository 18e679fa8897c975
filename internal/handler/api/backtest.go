package api

import (
	"MarketLab/internal/domain/models"
	"MarketLab/internal/usecase"
	xhttp "MarketLab/pkg/http"
	xlogger "MarketLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BacktestHandler exposes the strategy replay endpoint.
type BacktestHandler struct {
	logger *xlogger.Logger
	uc     *usecase.BacktestUseCase
}

func NewBacktestHandler(logger *xlogger.Logger, uc *usecase.BacktestUseCase) *BacktestHandler {
	return &BacktestHandler{logger: logger, uc: uc}
}

func (h *BacktestHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/backtest", h.Run)
}

func (h *BacktestHandler) Run(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	run, err := h.uc.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("backtest failed",
			xlogger.String("symbol", req.Symbol),
			xlogger.String("strategy", req.Strategy),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MapDomainError(err))
	}
	return xhttp.SuccessResponse(c, run)
}
