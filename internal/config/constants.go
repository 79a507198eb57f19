package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Quiz generation constants
const (
	// DefaultQuestionCount is the number of questions generated when the
	// request does not specify one.
	DefaultQuestionCount = 10

	// MaxDistractors caps the number of wrong options per question. With the
	// correct answer that yields at most four options.
	MaxDistractors = 3
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self' blob: data:;"
)
