package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/internal/roster"
	"github.com/Eursukkul/attendance-service/internal/service"
	"github.com/labstack/echo/v4"
)

// maxRosterBytes caps uploaded roster files.
const maxRosterBytes = 10 << 20

type RosterHandler struct {
	svc service.RosterService
}

func NewRosterHandler(svc service.RosterService) *RosterHandler {
	return &RosterHandler{svc: svc}
}

func (h *RosterHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.POST("/:id/rosters", h.UploadRoster)
	events.GET("/:id/rosters", h.ListRosters)

	e.DELETE("/api/v1/rosters/:id", h.DeleteRoster)
}

func (h *RosterHandler) UploadRoster(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > maxRosterBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "roster file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxRosterBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}

	upload, err := h.svc.Upload(c.Request().Context(), service.RosterUploadInput{
		EventID:    eventID,
		FileName:   fh.Filename,
		UploadedBy: operatorID(c, c.FormValue("uploaded_by")),
		Data:       data,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, roster.ErrEmptyRoster), errors.Is(err, service.ErrInvalidRoster):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, upload)
}

func (h *RosterHandler) ListRosters(c echo.Context) error {
	eventID, err := uintParam(c, "id", "event id")
	if err != nil {
		return err
	}

	uploads, err := h.svc.List(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if uploads == nil {
		uploads = []models.RosterUpload{}
	}
	return c.JSON(http.StatusOK, uploads)
}

func (h *RosterHandler) DeleteRoster(c echo.Context) error {
	id, err := uintParam(c, "id", "roster id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrRosterNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
