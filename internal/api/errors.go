package api

import (
	"fmt"
)

// NetworkError is a failed upload or RPC: the request never completed or the
// service answered with a non-2xx status. Oversized payloads surface this way.
type NetworkError struct {
	StatusCode   int // 0 when no response was received
	PayloadBytes int
	Body         string
	Err          error
}

func (e *NetworkError) Error() string {
	var cause string
	switch {
	case e.Err != nil && e.StatusCode == 0:
		cause = e.Err.Error()
	case e.Body != "":
		cause = fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
	default:
		cause = fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("transcription request failed (%.2f MB payload): %s; "+
		"the file may exceed the service's size limit, or the network connection failed",
		float64(e.PayloadBytes)/(1024*1024), cause)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseFormatError is a reply that is missing, not JSON, not an array, or
// has an element that violates the segment schema.
type ResponseFormatError struct {
	Reason string
	Body   string // truncated raw reply, for diagnostics
}

func (e *ResponseFormatError) Error() string {
	if e.Body == "" {
		return "malformed transcription response: " + e.Reason
	}
	return fmt.Sprintf("malformed transcription response: %s (reply: %q)", e.Reason, e.Body)
}

// truncate shortens s for inclusion in error messages.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
