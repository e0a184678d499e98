package tracker

import "errors"

var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrStoreUnavailable = errors.New("delivery store unavailable")
	ErrUnknownEvent     = errors.New("unknown engagement event")
)
