package result

import "errors"

// ErrMalformedRecord is returned by Parse when a block does not have the
// "URL:" line followed by the words line.
var ErrMalformedRecord = errors.New("malformed result record")
