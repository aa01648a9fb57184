package delta

import "errors"

var (
	// ErrChecksumMismatch is returned by Apply when the whole-file
	// checksum read from the wire does not match the reconstructed
	// content.
	ErrChecksumMismatch = errors.New("delta: whole-file checksum mismatch")

	// ErrBlockIndexOutOfRange is returned when a Copy token references a
	// block index beyond the signature's block count.
	ErrBlockIndexOutOfRange = errors.New("delta: copy token block index out of range")
)
