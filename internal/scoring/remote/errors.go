package remote

import "errors"

var (
	// ErrConnectionFailed indicates the gRPC connection could not be created
	ErrConnectionFailed = errors.New("model service connection failed")

	// ErrModelServiceUnavailable indicates the Score RPC failed
	ErrModelServiceUnavailable = errors.New("model service unavailable")

	// ErrInvalidResponse indicates the response is missing or has malformed fields
	ErrInvalidResponse = errors.New("invalid response from model service")
)
