package billing

import (
	"errors"
	"net/http"
)

var (
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedPayload   = errors.New("malformed webhook payload")
	ErrMissingEmail       = errors.New("no customer email resolvable")
	ErrStoreUnavailable   = errors.New("entitlement store unavailable")
	ErrProvisioningFailed = errors.New("account provisioning failed")
)

// HTTPStatus maps the error taxonomy onto webhook response codes. Caller
// errors are 400 and never retried; everything else is 500 so the provider
// redelivers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingSignature),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrMalformedPayload),
		errors.Is(err, ErrMissingEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
