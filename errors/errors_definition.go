// Package errors provides the HTTP error type returned by the API and the
// catalogue of errors it can produce.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the caller's fault and return
// HTTP Status 400. Error codes 50001-59999 are the server's fault, or the
// billing service's, and return HTTP Status 500 or 503.
//
// NEVER change any of the current error codes, only append new errors. The
// code is only used in logs, responses carry the message alone.
var (
	// Validation errors (400)
	ErrInvalidAmount         = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Invalid amount"), LogLevel: "info"}
	ErrPaymentMethodRequired = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("Payment method ID is required"), LogLevel: "info"}

	// Server errors (500). A malformed body is reported as a server error too,
	// callers cannot tell it apart from a billing failure.
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response"), LogLevel: "error"}
	ErrMalformedBody              = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("invalid JSON request body"), LogLevel: "error"}
	ErrProvisioningFailed         = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrBillingUnavailable         = Error{Code: 50301, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("billing service not available"), LogLevel: "error"}
)
