package roster

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookmydoctor/calendar/internal/platform/auth"
	"github.com/bookmydoctor/calendar/pkg/pagination"
)

type Handler struct {
	dir *Directory
}

func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	readGroup.GET("/practitioners", h.ListPractitioners)
	readGroup.GET("/practitioners/:id", h.GetPractitioner)
}

func (h *Handler) ListPractitioners(c echo.Context) error {
	items := h.dir.Search(c.QueryParam("q"))
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	p, err := h.dir.Find(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	return c.JSON(http.StatusOK, p)
}
