package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/factlens/factlens/internal/store"
)

// HistoryHandler serves a user's stored investigations and analyses.
type HistoryHandler struct {
	Store *store.Store
	Index *store.Index
}

func (h *HistoryHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
}

func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

func (h *HistoryHandler) list(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	records, err := h.Store.ListRecords(c.Request().Context(), userID(c), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []store.Record{}
	}
	return c.JSON(http.StatusOK, map[string]any{"records": records})
}

func (h *HistoryHandler) get(c echo.Context) error {
	rec, err := h.Store.GetRecord(c.Request().Context(), userID(c), c.Param("id"))
	if err == store.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *HistoryHandler) remove(c echo.Context) error {
	id := c.Param("id")
	err := h.Store.DeleteRecord(c.Request().Context(), userID(c), id)
	if err == store.ErrNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Index != nil {
		_ = h.Index.Remove(id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HistoryHandler) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history search not available")
	}
	ids, err := h.Index.Search(userID(c), query, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	records := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := h.Store.GetRecord(c.Request().Context(), userID(c), id)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return c.JSON(http.StatusOK, map[string]any{"records": records})
}
