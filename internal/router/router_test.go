package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"fiscaldoc/internal/handler"
	"fiscaldoc/internal/router"
	"fiscaldoc/mocks"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	docs := new(mocks.MockDocumentService)
	return router.Setup(log, []string{"http://localhost:3000"}, router.Handlers{
		Health:      handler.NewHealthHandler(nil),
		Document:    handler.NewDocumentHandler(docs),
		Calculation: handler.NewCalculationHandler(docs),
		Payment:     handler.NewPaymentHandler(new(mocks.MockPaymentService)),
		Resolution:  handler.NewResolutionHandler(docs),
		Series:      handler.NewSeriesHandler(new(mocks.MockSeriesService)),
	})
}

func TestSetup_Routes(t *testing.T) {
	r := setupRouter()

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"POST /api/v1/calculations",
		"POST /api/v1/documents",
		"GET /api/v1/documents/:id",
		"PUT /api/v1/documents/:id/lines",
		"DELETE /api/v1/documents/:id",
		"POST /api/v1/documents/:id/emit",
		"POST /api/v1/documents/:id/submit",
		"POST /api/v1/documents/:id/void",
		"POST /api/v1/documents/:id/corrections",
		"POST /api/v1/documents/:id/payments",
		"GET /api/v1/documents/:id/payments",
		"GET /api/v1/documents/:id/history",
		"POST /api/v1/authority/resolutions",
		"POST /api/v1/series",
		"GET /api/v1/series/:code",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetup_HealthAndRequestID(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSetup_InvalidDocumentID(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", http.NoBody)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}
