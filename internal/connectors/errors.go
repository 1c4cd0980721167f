package connectors

import "errors"

// ErrParse wraps a record-level parsing failure. Connectors never return it
// up the call stack; it exists so tests and internal helpers can classify a
// failure with errors.Is without string matching.
var ErrParse = errors.New("connectors: parse error")
