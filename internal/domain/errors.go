package domain

import "errors"

// Domain errors
var (
	ErrPlayerExists          = errors.New("player already registered")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrNameTooLong           = errors.New("player name must be 32 bytes or less")
	ErrCounterOverflow       = errors.New("stat counter would overflow")
	ErrInsufficientClaimable = errors.New("not enough unclaimed diamonds")
	ErrIssuanceFailed        = errors.New("token issuance failed")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInternalError         = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound)
}
