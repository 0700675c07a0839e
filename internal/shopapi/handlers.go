package shopapi

import (
	"context"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/sneakerdrop/internal/catalog"
	"github.com/talkincode/sneakerdrop/internal/domain"
	"github.com/talkincode/sneakerdrop/internal/pricing"
	"github.com/talkincode/sneakerdrop/internal/purchase"
	"github.com/talkincode/sneakerdrop/pkg/metrics"
)

// Handler serves the shop API on top of the purchase engine. All
// dependencies are injected; there is no ambient store handle.
type Handler struct {
	store       purchase.Store
	coordinator *purchase.Coordinator
	search      *catalog.Search
	lockTimeout time.Duration
}

func NewHandler(store purchase.Store, coordinator *purchase.Coordinator, search *catalog.Search, lockTimeout time.Duration) *Handler {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Handler{
		store:       store,
		coordinator: coordinator,
		search:      search,
		lockTimeout: lockTimeout,
	}
}

// Register mounts the API routes.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/buy", h.buy)
	api.GET("/search", h.searchSneakers)
	api.GET("/sneakers", h.listSneakers)
	api.GET("/orders", h.listOrders)
	api.GET("/metrics", h.queryMetrics)
}

// buyPayload matches the original request contract. Premium stays
// loosely typed until normalized once at this boundary.
type buyPayload struct {
	ID      int64       `json:"id" form:"id"`
	Size    string      `json:"size" form:"size"`
	User    string      `json:"user" form:"user"`
	Premium interface{} `json:"premium" form:"premium"`
}

func (h *Handler) buy(c echo.Context) error {
	var payload buyPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, purchase.Result{
			Status:  purchase.StatusFail,
			Message: "unable to parse request",
		})
	}
	if payload.ID == 0 || payload.Size == "" || payload.User == "" {
		return c.JSON(http.StatusBadRequest, purchase.Result{
			Status:  purchase.StatusFail,
			Message: "missing required parameters: id, size, user",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.lockTimeout)
	defer cancel()

	result := h.coordinator.Purchase(ctx, purchase.Request{
		SneakerID: payload.ID,
		Size:      payload.Size,
		UserID:    payload.User,
		Premium:   pricing.Truthy(payload.Premium),
	})
	if result.Status == purchase.StatusError {
		return c.JSON(http.StatusInternalServerError, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) searchSneakers(c echo.Context) error {
	isPremium := pricing.Truthy(c.QueryParam("premium"))
	budget := cast.ToInt64(c.QueryParam("budget"))

	entries, err := h.search.Search(c.Request().Context(), isPremium, budget)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) listSneakers(c echo.Context) error {
	sneakers, err := h.store.ListSneakers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if sneakers == nil {
		sneakers = []domain.Sneaker{}
	}
	return c.JSON(http.StatusOK, sneakers)
}

func (h *Handler) listOrders(c echo.Context) error {
	filter := purchase.OrderFilter{
		UserID: c.QueryParam("user"),
		Limit:  1000,
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid from time"})
		}
		filter.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid to time"})
		}
		filter.To = t
	}

	orders, err := h.store.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if c.QueryParam("format") == "csv" {
		return h.exportOrdersCSV(c, orders)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(http.StatusOK, orders)
}

type metricPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

func (h *Handler) queryMetrics(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	last := 15 * time.Minute
	if v := c.QueryParam("last"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid last duration"})
		}
		last = d
	}

	end := time.Now().Unix()
	points, err := metrics.QueryRange(name, end-int64(last.Seconds()), end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	out := make([]metricPoint, 0, len(points))
	for _, p := range points {
		out = append(out, metricPoint{Timestamp: p.Timestamp, Value: p.Value})
	}
	return c.JSON(http.StatusOK, out)
}
