package api

import (
	"MarketLab/internal/domain/models"
	"MarketLab/internal/usecase"
	xhttp "MarketLab/pkg/http"
	xlogger "MarketLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HistoricalHandler exposes the cached market-history endpoints.
type HistoricalHandler struct {
	logger *xlogger.Logger
	uc     *usecase.HistoricalUseCase
}

func NewHistoricalHandler(logger *xlogger.Logger, uc *usecase.HistoricalUseCase) *HistoricalHandler {
	return &HistoricalHandler{logger: logger, uc: uc}
}

func (h *HistoricalHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/historical")
	g.GET("", h.Get)
	g.POST("/batch-download", h.BatchDownload)
	g.GET("/statistics", h.Statistics)
}

func (h *HistoricalHandler) Get(c echo.Context) error {
	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Get(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("historical lookup failed",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.MapDomainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *HistoricalHandler) BatchDownload(c echo.Context) error {
	req := &models.BatchDownloadRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// Per-symbol failures ride inside the result body, never abort the batch.
	res := h.uc.BatchDownload(c.Request().Context(), *req)
	return xhttp.SuccessResponse(c, res)
}

func (h *HistoricalHandler) Statistics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Statistics(c.Request().Context()))
}
