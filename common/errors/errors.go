package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error for callers that need to branch on
// failure mode rather than HTTP code.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindEmptyCart         Kind = "empty_cart"
	KindStockInsufficient Kind = "stock_insufficient"
	KindInvalidTransition Kind = "invalid_transition"
	KindUnavailable       Kind = "unavailable"
	KindConsistency       Kind = "consistency"
	KindInternal          Kind = "internal"
)

// StockShortage itemizes one product that could not be reserved, with the
// stock actually available so the client can lower quantities and resubmit.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Error represents an application error
type Error struct {
	Kind      Kind            `json:"kind"`
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Shortages []StockShortage `json:"errors,omitempty"`
	Err       error           `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

func EmptyCart() *Error {
	return New(KindEmptyCart, http.StatusBadRequest, "cart is empty", nil)
}

func StockInsufficient(shortages []StockShortage) *Error {
	e := New(KindStockInsufficient, http.StatusConflict, "insufficient stock", nil)
	e.Shortages = shortages
	return e
}

func InvalidTransition(from, to string) *Error {
	return New(KindInvalidTransition, http.StatusConflict,
		fmt.Sprintf("invalid order status transition %s -> %s", from, to), nil)
}

// Unavailable marks a persistence or sequencer outage. Safe to retry with
// backoff, never safe to bypass.
func Unavailable(message string, err error) *Error {
	return New(KindUnavailable, http.StatusServiceUnavailable, message, err)
}

// Consistency marks a failed rollback: stock may be stuck reserved and an
// operator needs to look. Never swallowed.
func Consistency(message string, err error) *Error {
	return New(KindConsistency, http.StatusInternalServerError, message, err)
}

func Internal(message string, err error) *Error {
	return New(KindInternal, http.StatusInternalServerError, message, err)
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Respond writes err as the standard JSON failure envelope.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Internal("internal server error", err)
	}

	body := gin.H{
		"success": false,
		"message": appErr.Message,
	}
	if len(appErr.Shortages) > 0 {
		body["errors"] = appErr.Shortages
	}
	c.JSON(appErr.Code, body)
}
