package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	contextutils "simsim/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryConfig configures error recovery behavior
type ErrorRecoveryConfig struct {
	// EnableCircuitBreaker enables circuit breaker pattern
	EnableCircuitBreaker bool
	// CircuitBreakerThreshold specifies failure threshold for circuit breaker
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout specifies how long to wait before retrying after circuit opens
	CircuitBreakerTimeout time.Duration
}

// DefaultErrorRecoveryConfig returns a default error recovery configuration
func DefaultErrorRecoveryConfig() *ErrorRecoveryConfig {
	return &ErrorRecoveryConfig{
		EnableCircuitBreaker:    false,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// circuitBreakerState represents the state of a circuit breaker
type circuitBreakerState int

const (
	circuitClosed circuitBreakerState = iota
	circuitOpen
	circuitHalfOpen
)

// circuitBreaker tracks failures and manages circuit state
type circuitBreaker struct {
	state       circuitBreakerState
	failures    int
	lastFailure time.Time
	config      *ErrorRecoveryConfig
}

func newCircuitBreaker(config *ErrorRecoveryConfig) *circuitBreaker {
	return &circuitBreaker{
		state:  circuitClosed,
		config: config,
	}
}

// canExecute checks if the circuit breaker allows execution
func (cb *circuitBreaker) canExecute() bool {
	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailure) > cb.config.CircuitBreakerTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures = 0
	cb.state = circuitClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.config.CircuitBreakerThreshold {
		cb.state = circuitOpen
	}
}

// ErrorRecoveryMiddleware creates middleware that turns panics into structured
// 500 responses and optionally trips a circuit breaker on sustained failures.
func ErrorRecoveryMiddleware(config *ErrorRecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultErrorRecoveryConfig()
	}

	var cb *circuitBreaker
	if config.EnableCircuitBreaker {
		cb = newCircuitBreaker(config)
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stackTrace := string(debug.Stack())
				fmt.Printf("Panic recovered: %v\nStack trace: %s\n", err, stackTrace)

				var panicErr error
				if e, ok := err.(error); ok {
					panicErr = e
				} else {
					panicErr = contextutils.ErrorWithContextf("panic: %v", err)
				}

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)

				// Stack traces only leak in debug mode
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				HandleAppError(c, appErr)
				c.Abort()
			}
		}()

		if cb != nil && !cb.canExecute() {
			ServiceUnavailable(c, "Service temporarily unavailable due to high error rate")
			c.Abort()
			return
		}

		c.Next()

		if cb != nil {
			if c.Writer.Status() >= 500 {
				cb.recordFailure()
			} else if cb.state == circuitHalfOpen {
				cb.recordSuccess()
			}
		}
	}
}

// HandleAppError handles any AppError and sends appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*contextutils.AppError); ok {
		StandardizeAppError(c, appErr)
	} else {
		StandardizeAppError(c, contextutils.NewAppError(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityError,
			"Internal server error",
			err.Error(),
		))
	}
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	statusCode := mapErrorCodeToHTTPStatus(err.Code)

	errorJSON := err.ToJSON()
	errorJSON["retryable"] = contextutils.IsRetryable(err)

	c.JSON(statusCode, errorJSON)
}

// ServiceUnavailable sends a 503 Service Unavailable error with a standardized payload
func ServiceUnavailable(c *gin.Context, msg string) {
	appErr := contextutils.NewAppError(
		contextutils.ErrorCodeServiceUnavailable,
		contextutils.SeverityError,
		msg,
		"",
	)
	StandardizeAppError(c, appErr)
}

// mapErrorCodeToHTTPStatus maps AppError codes to appropriate HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeInvalidFormat, contextutils.ErrorCodeValidationFailed,
		contextutils.ErrorCodeLengthMismatch, contextutils.ErrorCodeInsufficientData,
		contextutils.ErrorCodeSessionNotFound:
		return http.StatusBadRequest

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}
