package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clientA = "1.2.3.4:1234"
	clientB = "5.6.7.8:5678"
)

func limitedHandler(ratePerSecond float64, burst int) echo.HandlerFunc {
	return newRateLimiter(ratePerSecond, burst)(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})
}

func postFrom(t *testing.T, h echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, h(echo.New().NewContext(req, rec)))
	return rec
}

func TestRateLimiter_BurstIsServed(t *testing.T) {
	h := limitedHandler(10, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, postFrom(t, h, clientA).Code, "request %d", i)
	}
}

func TestRateLimiter_RejectsBeyondBurst(t *testing.T) {
	h := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusCreated, postFrom(t, h, clientA).Code)

	rec := postFrom(t, h, clientA)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"error": "rate limit exceeded", "type": "rate_limited"}, resp)
}

func TestRateLimiter_BucketsArePerClient(t *testing.T) {
	h := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusCreated, postFrom(t, h, clientA).Code)
	assert.Equal(t, http.StatusCreated, postFrom(t, h, clientB).Code)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(t, h, clientA).Code)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(t, h, clientB).Code)
}
