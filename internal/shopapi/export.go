package shopapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/sneakerdrop/internal/domain"
)

// orderExport is the CSV projection of a ledger row.
type orderExport struct {
	ID        string `csv:"id"`
	SneakerID int64  `csv:"sneaker_id"`
	Size      string `csv:"size"`
	UserID    string `csv:"user_id"`
	Amount    int64  `csv:"amount"`
	OrderedAt string `csv:"ordered_at"`
}

func (h *Handler) exportOrdersCSV(c echo.Context, orders []domain.Order) error {
	rows := make([]orderExport, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, orderExport{
			ID:        strconv.FormatInt(o.ID, 10),
			SneakerID: o.SneakerID,
			Size:      o.Size,
			UserID:    o.UserID,
			Amount:    o.Amount,
			OrderedAt: o.OrderedAt.Format(time.RFC3339),
		})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="orders.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(&rows, c.Response())
}
