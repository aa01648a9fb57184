package filelist

import "errors"

var (
	// ErrUnsafePath is returned when SAFE_FILE_LIST is active and an
	// entry's path is absolute or contains a ".." component. The decoder
	// returns it alongside the fully-consumed entry, so the stream stays
	// in sync and callers can count the violation and keep decoding.
	ErrUnsafePath = errors.New("filelist: unsafe path rejected under SAFE_FILE_LIST")

	// ErrTruncatedEntry signals the stream ended mid-entry.
	ErrTruncatedEntry = errors.New("filelist: truncated entry")

	// ErrNoPreviousEntry is returned when a SAME_* flag requires prior
	// context the decoder does not have (the very first entry in a
	// segment, or a reused decoder that was never given one).
	ErrNoPreviousEntry = errors.New("filelist: SAME_* flag with no previous entry")
)
