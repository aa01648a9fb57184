package session

import "errors"

var (
	ErrInvalidTransition = errors.New("session: invalid per-file transfer state transition")
	ErrDuplicateTransfer = errors.New("session: file index already has a transfer in flight")
	ErrMaxDeleteExceeded = errors.New("session: --max-delete cap reached")
	ErrMissingCollaborators = errors.New("session: Options is missing a required collaborator")
)
