package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bookmydoctor/calendar/internal/platform/auth"
	"github.com/bookmydoctor/calendar/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	readGroup.GET("/appointments", h.ListAppointments)
	readGroup.GET("/appointments/:id", h.GetAppointment)
	readGroup.GET("/calendar/week", h.GetWeek)
	readGroup.GET("/calendar/free-slots", h.GetFreeSlots)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleScheduler))
	writeGroup.POST("/appointments", h.CreateAppointment)
	writeGroup.POST("/appointments/check", h.CheckAppointment)
	writeGroup.PUT("/appointments/:id", h.UpdateAppointment)
	writeGroup.DELETE("/appointments/:id", h.DeleteAppointment)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrMissingRequiredField),
		errors.Is(err, ErrUnknownPractitioner):
		return http.StatusBadRequest
	case errors.Is(err, ErrSchedulingConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownAppointment):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// reject writes a BookingResult for domain rejections and surfaces anything
// else as an internal error.
func reject(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, err.Error())
	}
	return c.JSON(status, Rejected(err))
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ExistingID = ""
	a, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(http.StatusCreated, Committed(a))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ExistingID = c.Param("id")
	a, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return reject(c, err)
	}
	return c.JSON(http.StatusOK, Committed(a))
}

type checkResponse struct {
	Legal     bool          `json:"legal"`
	Candidate Appointment   `json:"candidate"`
	Conflicts []Appointment `json:"conflicts"`
}

func (h *Handler) CheckAppointment(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	candidate, check, err := h.svc.Check(c.Request().Context(), req)
	if err != nil {
		return reject(c, err)
	}
	conflicts := check.Conflicts
	if conflicts == nil {
		conflicts = []Appointment{}
	}
	return c.JSON(http.StatusOK, checkResponse{Legal: check.Legal, Candidate: candidate, Conflicts: conflicts})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f := ListFilter{
		DoctorID: strings.TrimSpace(c.QueryParam("doctor")),
		Date:     strings.TrimSpace(c.QueryParam("date")),
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	if err := h.svc.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Calendar Handlers --

func (h *Handler) GetWeek(c echo.Context) error {
	view, err := ParseView(c.QueryParam("view"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g, err := h.svc.Week(c.Request().Context(), GridQuery{
		Anchor:   strings.TrimSpace(c.QueryParam("anchor")),
		DoctorID: strings.TrimSpace(c.QueryParam("doctor")),
		View:     view,
	})
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) GetFreeSlots(c echo.Context) error {
	q := SlotQuery{
		DoctorID: strings.TrimSpace(c.QueryParam("doctor")),
		Date:     strings.TrimSpace(c.QueryParam("date")),
	}
	for name, dst := range map[string]*int{"length": &q.Length, "step": &q.Step} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" parameter")
		}
		*dst = n
	}
	slots, err := h.svc.FreeSlots(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": q.DoctorID,
		"date":      q.Date,
		"slots":     slots,
	})
}
