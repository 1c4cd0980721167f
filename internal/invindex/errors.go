package invindex

import "errors"

// ErrCorrupt is wrapped by errors raised when the on-disk document log
// cannot be parsed as the current schema.
var ErrCorrupt = errors.New("invindex: corrupt index")
