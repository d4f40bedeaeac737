package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/logging"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/middleware"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/repo"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/service"
	"github.com/Radhikamangroliya/todo-timeline-api/internal/util"
)

type TimelineHTTP struct {
	Svc *service.TimelineService
}

func claimID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// currentUserID reads the local user id out of the validated claims.
func currentUserID(c echo.Context) (uint, error) {
	claims := middleware.ClaimsFromEcho(c)
	if claims == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing claims")
	}
	id, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "malformed user id claim")
	}
	return uint(id), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *TimelineHTTP) GetTimeline(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	entries, total, err := h.Svc.List(c.Request().Context(), userID, offset, limit)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("timeline list failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load timeline")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": entries,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *TimelineHTTP) CreateEntry(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var in service.EntryInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	entry, err := h.Svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		if errors.Is(err, service.ErrTitleRequired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Title is required"})
		}
		logging.FromContext(c.Request().Context()).Error("entry create failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create entry")
	}

	return c.JSON(http.StatusCreated, entry)
}

func (h *TimelineHTTP) UpdateEntry(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	var in service.EntryInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	entry, err := h.Svc.Update(c.Request().Context(), uint(id), userID, in)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		}
		logging.FromContext(c.Request().Context()).Error("entry update failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update entry")
	}

	return c.JSON(http.StatusOK, entry)
}

func (h *TimelineHTTP) DeleteEntry(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	if err := h.Svc.Delete(c.Request().Context(), uint(id), userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		}
		logging.FromContext(c.Request().Context()).Error("entry delete failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete entry")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TimelineHTTP) SearchEntries(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query parameter q is required"})
	}
	if !h.Svc.Search.Enabled() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, entries, err := h.Svc.Search.Search(c.Request().Context(), userID, q, from, limit)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("timeline search failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "entries": entries})
}
