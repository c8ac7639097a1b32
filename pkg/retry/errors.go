package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

type ErrorKind string

const (
	ErrorKindTransport       ErrorKind = "transport"
	ErrorKindRateLimit       ErrorKind = "rate-limit"
	ErrorKindAuth            ErrorKind = "auth"
	ErrorKindContextExceeded ErrorKind = "context-exceeded"
	ErrorKindCancelled       ErrorKind = "cancelled"
	ErrorKindUnknown         ErrorKind = "unknown"
)

// StreamError is the structured form of a stream failure kept in State.LastError.
type StreamError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	Retryable  bool      `json:"retryable"`

	err error
}

func (e *StreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.err
}

// statusCodeRegex matches HTTP status codes in error messages (e.g., "429", ": 503 ")
var statusCodeRegex = regexp.MustCompile(`\b([45]\d{2})\b`)

// statusCode extracts an HTTP status code from known SDK error types, falling
// back to the error text. Returns 0 if none is found.
func statusCode(err error) int {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}

	var geminiErr *genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code
	}

	if m := statusCodeRegex.FindStringSubmatch(err.Error()); len(m) >= 2 {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

var (
	transportPatterns = []string{
		"timeout",
		"connection reset",
		"connection refused",
		"broken pipe",
		"unexpected eof",
		"no such host",
		"temporary failure",
		"service unavailable",
		"internal server error",
		"bad gateway",
		"gateway timeout",
		"overloaded",
		"stream closed",
	}
	contextExceededPatterns = []string{
		"context length",
		"context window",
		"prompt is too long",
		"maximum context",
	}
	authPatterns = []string{
		"unauthorized",
		"authentication",
		"api key",
		"permission denied",
	}
	rateLimitPatterns = []string{
		"rate limit",
		"too many requests",
		"throttl",
		"quota",
	}
)

// Classify turns a stream failure into a StreamError. Only transport and
// rate-limit failures are retryable; the rest need a different request or
// a human.
func Classify(err error) *StreamError {
	if err == nil {
		return nil
	}

	var already *StreamError
	if errors.As(err, &already) {
		return already
	}

	se := &StreamError{Kind: ErrorKindUnknown, Message: err.Error(), err: err}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		se.Kind = ErrorKindCancelled
		return se
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, contextExceededPatterns) {
		se.Kind = ErrorKindContextExceeded
		se.StatusCode = statusCode(err)
		return se
	}

	if code := statusCode(err); code != 0 {
		se.StatusCode = code
		switch {
		case code == 429:
			se.Kind, se.Retryable = ErrorKindRateLimit, true
		case code == 401 || code == 403:
			se.Kind = ErrorKindAuth
		case code == 408 || code >= 500:
			se.Kind, se.Retryable = ErrorKindTransport, true
		}
		return se
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		se.Kind, se.Retryable = ErrorKindTransport, true
		return se
	}

	switch {
	case containsAny(msg, rateLimitPatterns):
		se.Kind, se.Retryable = ErrorKindRateLimit, true
	case containsAny(msg, authPatterns):
		se.Kind = ErrorKindAuth
	case containsAny(msg, transportPatterns):
		se.Kind, se.Retryable = ErrorKindTransport, true
	}
	return se
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
