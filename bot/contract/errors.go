package contract

import "errors"

var (
	ErrConfig       = errors.New("missing or invalid configuration")
	ErrLedger       = errors.New("ledger operation failed")
	ErrGateway      = errors.New("gateway call failed")
	ErrBadSignature = errors.New("event signature verification failed")
	ErrBadEvent     = errors.New("event payload is invalid")
)
