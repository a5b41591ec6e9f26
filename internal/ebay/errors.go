package ebay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoToken is returned when a user has no linked marketplace credentials.
// The orchestrator aborts before issuing any remote call.
var ErrNoToken = errors.New("no marketplace token available")

// Error codes the remote APIs use to signal "this listing is already ended".
// The Trading API reports 1047 on a second EndItem; the Sell API reports
// 25713 when the offer is no longer published.
const (
	codeTradingAlreadyEnded = 1047
	codeOfferUnpublished    = 25713
)

// APIError is a structured failure returned by either remote API: a non-2xx
// status with an error body on the modern protocol, or Ack=Failure with an
// Errors block on the legacy one.
type APIError struct {
	Status  int    // HTTP status, 0 for legacy Ack failures on a 200 response
	Code    int    // errorId (modern) or ErrorCode (legacy), 0 if absent
	Ack     string // legacy Ack value, empty on the modern protocol
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Ack != "":
		return fmt.Sprintf("ebay trading call failed (ack %s, code %d): %s", e.Ack, e.Code, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("ebay api error (status %d, code %d): %s", e.Status, e.Code, e.Message)
	default:
		return fmt.Sprintf("ebay api error (status %d): %s", e.Status, e.Message)
	}
}

// IsAlreadyEnded reports whether err is the remote API telling us the
// listing is already ended or closed — the idempotency signal that lets a
// retried withdraw be absorbed as success. The structured error code is
// checked first; the message substring match is a fallback for responses
// that omit the code.
func IsAlreadyEnded(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case codeTradingAlreadyEnded, codeOfferUnpublished:
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already been closed") ||
		strings.Contains(msg, "already ended") ||
		strings.Contains(msg, "auction has been closed")
}
