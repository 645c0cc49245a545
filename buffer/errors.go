package buffer

import "errors"

// ErrPoolExhausted is returned by NewPage/FetchPage when there is neither a
// free frame nor anything the replacer will let go of. It is a transient
// condition, not a contract violation: callers are expected to retry or
// fail their own operation, not treat it as a bug.
var ErrPoolExhausted = errors.New("buffer: pool exhausted, no frame available")
