package outbox

import "errors"

// ErrClosed is returned when enqueueing on a closed pool.
var ErrClosed = errors.New("outbox is closed")
