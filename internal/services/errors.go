package services

import "errors"

var (
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrTotalsMismatch signals client-submitted totals disagree with the server computation.
	ErrTotalsMismatch = errors.New("order totals do not match")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order not found")
	// ErrPromoNotFound indicates no promo code exists for the given id.
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrPromoInvalid covers unknown, inactive, expired and not-yet-started codes alike.
	ErrPromoInvalid = errors.New("invalid or expired promo code")
	// ErrNotificationNotFound indicates the notification could not be located.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrUnauthenticated indicates missing or invalid credentials.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("not authorized")
	// ErrConflict indicates a uniqueness violation or a concurrent modification.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition indicates a status change not allowed by the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrGatewayUnavailable indicates the payment gateway could not be reached or answered badly.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrPaymentNotSuccessful indicates the gateway reports the transaction as not successful.
	ErrPaymentNotSuccessful = errors.New("payment verification failed")
	// ErrInvalidSignature indicates a webhook payload failed signature verification.
	ErrInvalidSignature = errors.New("invalid signature")
)
