package syncer

import "errors"

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("syncer: missing dependency")

// ErrIndexUnavailable is returned while the index collection cannot be prepared.
var ErrIndexUnavailable = errors.New("syncer: vector index unavailable")
