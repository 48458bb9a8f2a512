package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 403 and 429 responses. EDGAR answers
	// 403 to callers that exceed the request ceiling.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// retryableStatus is the set of status codes worth another attempt.
var retryableStatus = map[int]bool{
	403: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// TransportError is the single error type the transport surfaces for a
// failed request. StatusCode is 0 when no response was received.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("EDGAR %s error: %s %s", e.ErrorClass, e.Method, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP error status to its class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == 403 || statusCode == 429:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry determines if a failure should be retried.
func shouldRetry(errorClass ErrorClass, statusCode int) bool {
	switch errorClass {
	case ErrorClassNetwork:
		return true
	case ErrorClassRateLimit, ErrorClassServer:
		return retryableStatus[statusCode]
	default:
		// 4xx other than 403/429 will not get better on retry
		return false
	}
}
