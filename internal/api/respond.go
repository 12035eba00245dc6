package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/session"
	log "github.com/sirupsen/logrus"
)

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	errBadRequest,
	product.ErrInvalidName,
	product.ErrInvalidCategory,
	product.ErrInvalidPrice,
	product.ErrInvalidInventory,
	product.ErrInvalidDiscount,
	auth.ErrPasswordTooShort,
}

// statusFor maps a domain error to its HTTP status. Anything unrecognised,
// including storage failures, is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrInsufficientInventory), errors.Is(err, session.ErrCartConflict):
		return http.StatusConflict
	case errors.Is(err, product.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAdminDisabled):
		return http.StatusForbidden
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError writes err with the status from statusFor. Server errors are
// logged and their detail is not sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"url":    r.URL,
		}).Error("request failed")
		message = http.StatusText(status)
	}
	respondJSONError(w, message, status)
}
