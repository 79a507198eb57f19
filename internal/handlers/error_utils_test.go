package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contextutils "simsim/internal/utils"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     contextutils.ErrorCode
		expected int
	}{
		{contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{contextutils.ErrorCodeMissingRequired, http.StatusBadRequest},
		{contextutils.ErrorCodeInvalidFormat, http.StatusBadRequest},
		{contextutils.ErrorCodeValidationFailed, http.StatusBadRequest},
		{contextutils.ErrorCodeLengthMismatch, http.StatusBadRequest},
		{contextutils.ErrorCodeInsufficientData, http.StatusBadRequest},
		{contextutils.ErrorCodeSessionNotFound, http.StatusBadRequest},
		{contextutils.ErrorCodeRecordNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeRecordExists, http.StatusConflict},
		{contextutils.ErrorCodeConflict, http.StatusConflict},
		{contextutils.ErrorCodeRateLimit, http.StatusTooManyRequests},
		{contextutils.ErrorCodeTimeout, http.StatusRequestTimeout},
		{contextutils.ErrorCodeServiceUnavailable, http.StatusServiceUnavailable},
		{contextutils.ErrorCodeDatabaseConnection, http.StatusServiceUnavailable},
		{contextutils.ErrorCodeDatabaseQuery, http.StatusInternalServerError},
		{contextutils.ErrorCodeSyncFailed, http.StatusInternalServerError},
		{contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
		{contextutils.ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestHandleAppError_StructuredBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeLengthMismatch,
		contextutils.SeverityWarn,
		"Arabic and Hebrew lengths differ",
		"details",
	))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeLengthMismatch), body["code"])
	assert.Equal(t, "Arabic and Hebrew lengths differ", body["message"])
	assert.Equal(t, "details", body["details"])
	assert.Equal(t, false, body["retryable"])
}

func TestHandleAppError_PlainErrorFallsBackTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleAppError(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInternalError), body["code"])
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationError(c, "count", "abc", "must be a positive integer")

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), body["code"])
	assert.Equal(t, "Invalid count", body["message"])
	assert.Contains(t, body["details"], "must be a positive integer")
}
