package eventstream

import "errors"

// ErrNilProjectEvent indicates a nil project event payload was provided to a publisher.
var ErrNilProjectEvent = errors.New("nil project event")
