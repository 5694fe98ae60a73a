package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	"github.com/ledger-service/ledger_service/pkg/logger"
	"github.com/ledger-service/ledger_service/pkg/metrics"
)

func testRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	return router
}

func get(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	router := testRouter(RequestID())

	var fromContext string
	router.GET("/", func(c *gin.Context) {
		fromContext = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	recorder := get(router, "/", nil)

	header := recorder.Header().Get("X-Request-ID")
	require.NotEmpty(t, header)
	assert.Equal(t, header, fromContext)

	_, err := uuid.Parse(header)
	assert.NoError(t, err)
}

func TestRequestID_PropagatesCallerValue(t *testing.T) {
	router := testRouter(RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := get(router, "/", map[string]string{"X-Request-ID": "upstream-id-7"})

	assert.Equal(t, "upstream-id-7", recorder.Header().Get("X-Request-ID"))
}

func TestRequestSizeLimit(t *testing.T) {
	router := testRouter(RequestSizeLimit())
	router.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRecorder()
	router.ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, small.Code)

	big := httptest.NewRecorder()
	router.ServeHTTP(big, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", MaxRequestSize+1))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, big.Code)
	assert.Contains(t, big.Body.String(), "request body too large")
}

func TestRecovery(t *testing.T) {
	router := testRouter(Recovery(logger.NewNop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})

	recorder := get(router, "/panic", nil)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var body entities.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, recorder.Body.String(), "kaboom")
}

func TestCORS(t *testing.T) {
	router := testRouter(CORS([]string{"https://app.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin is echoed", func(t *testing.T) {
		recorder := get(router, "/", map[string]string{"Origin": "https://app.example.com"})

		assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", recorder.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("unknown origin gets no allow header", func(t *testing.T) {
		recorder := get(router, "/", map[string]string{"Origin": "https://evil.example.com"})

		assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		wildcard := testRouter(CORS([]string{"*"}))
		wildcard.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		recorder := get(wildcard, "/", map[string]string{"Origin": "https://anything.example.com"})

		assert.Equal(t, "https://anything.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	router := testRouter(RateLimit(1))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := get(router, "/", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := get(router, "/", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var body entities.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body.Message)
}

func TestSecurityHeaders(t *testing.T) {
	router := testRouter(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := get(router, "/", nil)

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", recorder.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "strict-origin-when-cross-origin", recorder.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", recorder.Header().Get("Content-Security-Policy"))
}

func TestMetricsMiddleware(t *testing.T) {
	router := testRouter(Metrics())
	router.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := get(router, "/probe", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	counted := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/probe", "200"))
	assert.GreaterOrEqual(t, counted, 1.0)
}

func TestLoggerMiddlewareSetsRequestLogger(t *testing.T) {
	router := testRouter(RequestID(), Logger(logger.NewNop()))

	var hasLogger bool
	router.GET("/", func(c *gin.Context) {
		_, hasLogger = c.Get("logger")
		c.Status(http.StatusOK)
	})

	recorder := get(router, "/", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hasLogger)
}
