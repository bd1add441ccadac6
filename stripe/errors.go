package stripe

import (
	"errors"

	stripeapi "github.com/stripe/stripe-go/v81"
)

// CodeInvoicePaymentIntentRequiresAction is the Stripe error code returned
// when a subscription is created but the payment of its first invoice needs
// customer authentication.
const CodeInvoicePaymentIntentRequiresAction = "invoice_payment_intent_requires_action"

// StripeError represents a Stripe-specific error. Its message is the message
// reported by Stripe, unchanged, so it can be handed back to the caller.
type StripeError struct {
	Op      string
	Code    string
	Message string
	Type    string
	Err     error
}

func (e *StripeError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Code
	}
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// Common Stripe errors
var (
	ErrInvalidConfiguration = &StripeError{Code: "invalid_configuration", Message: "invalid stripe configuration"}
	ErrAPICallFailed        = &StripeError{Code: "api_call_failed", Message: "stripe API call failed"}
	ErrAPIConnection        = &StripeError{Code: "api_connection_error", Message: "could not reach stripe"}
)

// NewStripeError creates a new StripeError with the given code, message, and underlying error
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// newAPIError translates an error returned by stripe-go for the operation op.
// Errors reported by the Stripe API keep their code and message, anything
// else (network, encoding) is reported as a connection error.
func newAPIError(op string, err error) *StripeError {
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) {
		code := string(apiErr.Code)
		if code == "" {
			code = ErrAPICallFailed.Code
		}
		return &StripeError{
			Op:      op,
			Code:    code,
			Message: apiErr.Msg,
			Type:    string(apiErr.Type),
			Err:     err,
		}
	}
	return &StripeError{
		Op:      op,
		Code:    ErrAPIConnection.Code,
		Message: err.Error(),
		Err:     err,
	}
}

// IsRequiresAction reports whether err is the Stripe error raised when the
// first invoice of a new subscription needs customer authentication.
func IsRequiresAction(err error) bool {
	var apiErr *stripeapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return string(apiErr.Code) == CodeInvoicePaymentIntentRequiresAction
}
