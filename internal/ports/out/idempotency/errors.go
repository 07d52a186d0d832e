package idempotency

import "errors"

// ErrNotReserved is returned by Complete for a request that holds no reservation.
var ErrNotReserved = errors.New("idempotency: request not reserved")
