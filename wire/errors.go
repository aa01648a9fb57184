package wire

import "errors"

// ErrStringTooLong is returned by ReadVString when a peer-supplied length
// exceeds the caller's bound, and by WriteLegacyString when a string
// exceeds the 8-bit legacy string format's range.
var ErrStringTooLong = errors.New("wire: string length out of range")
