package api

import (
	"net/http"
	"time"

	"MarketLab/internal/domain/repository"
	xhttp "MarketLab/pkg/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports process liveness and durable-store reachability.
type HealthHandler struct {
	bars    repository.BarStore
	started time.Time
}

func NewHealthHandler(bars repository.BarStore) *HealthHandler {
	return &HealthHandler{bars: bars, started: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := "ok"
	storage := "ok"
	code := http.StatusOK
	if err := h.bars.Health(c.Request().Context()); err != nil {
		// The cache layer degrades gracefully without the durable store,
		// so report degraded rather than down.
		status = "degraded"
		storage = err.Error()
	}
	return xhttp.DataResponse(c, code, map[string]interface{}{
		"status":        status,
		"storage":       storage,
		"uptimeSeconds": int64(time.Since(h.started) / time.Second),
	})
}

// Router aggregates route registrars into the single handler the server
// accepts.
type Router struct {
	handlers []interface{ RegisterRoutes(e *echo.Echo) }
}

func NewRouter(handlers ...interface{ RegisterRoutes(e *echo.Echo) }) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
