package mattapi

import "errors"

var (
	// ErrConnection indicates the Matt API could not be reached
	ErrConnection = errors.New("failed to connect to Matt API")

	// ErrInvalidResponse indicates a response that could not be decoded
	ErrInvalidResponse = errors.New("invalid response from Matt API")

	// ErrNotFound indicates the requested resource does not exist upstream
	ErrNotFound = errors.New("resource not found")

	// ErrRequestRejected indicates the Matt API rejected the request
	ErrRequestRejected = errors.New("Matt API rejected request")
)
