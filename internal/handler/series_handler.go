package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fiscaldoc/internal/service"
)

// SeriesHandler handles document series administration.
type SeriesHandler struct {
	seriesService service.SeriesService
}

// NewSeriesHandler creates a new SeriesHandler.
func NewSeriesHandler(seriesService service.SeriesService) *SeriesHandler {
	return &SeriesHandler{seriesService: seriesService}
}

// Create handles POST /api/v1/series
// @Summary Create a series
// @Tags series
// @Accept json
// @Produce json
// @Param request body service.CreateSeriesInput true "Series"
// @Success 201 {object} Response{data=domain.DocumentSeries} "Series created"
// @Failure 409 {object} ErrorResponseBody "Series already exists"
// @Failure 422 {object} ErrorResponseBody "Validation failed"
// @Router /series [post]
func (h *SeriesHandler) Create(c *gin.Context) {
	var req service.CreateSeriesInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	series, err := h.seriesService.Create(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, series)
}

// List handles GET /api/v1/series
// @Summary List series
// @Tags series
// @Produce json
// @Param type query string false "Document type (code or name)"
// @Success 200 {object} Response{data=[]domain.DocumentSeries} "Series"
// @Failure 422 {object} ErrorResponseBody "Unknown document type"
// @Router /series [get]
func (h *SeriesHandler) List(c *gin.Context) {
	series, err := h.seriesService.List(c.Request.Context(), c.Query("type"))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, series)
}

// GetByCode handles GET /api/v1/series/:code
// @Summary Get a series
// @Tags series
// @Produce json
// @Param code path string true "Series code"
// @Success 200 {object} Response{data=domain.DocumentSeries} "Series"
// @Failure 404 {object} ErrorResponseBody "Series not found"
// @Router /series/{code} [get]
func (h *SeriesHandler) GetByCode(c *gin.Context) {
	series, err := h.seriesService.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, series)
}

// SetActive handles PATCH /api/v1/series/:code
// @Summary Activate or deactivate a series
// @Description Inactive series keep their counter but allocate no numbers.
// @Tags series
// @Accept json
// @Produce json
// @Param code path string true "Series code"
// @Param request body SetSeriesActiveRequest true "Active flag"
// @Success 200 {object} Response{data=domain.DocumentSeries} "Series updated"
// @Failure 404 {object} ErrorResponseBody "Series not found"
// @Router /series/{code} [patch]
func (h *SeriesHandler) SetActive(c *gin.Context) {
	var req SetSeriesActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "active is required")
		return
	}

	series, err := h.seriesService.SetActive(c.Request.Context(), c.Param("code"), *req.Active)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, series)
}
