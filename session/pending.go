package session

// TransferState is one per-file index's position in the strict per-file
// sequence signature request -> signature -> delta -> file checksum ->
// success/redo, with no other per-file message for the same index
// interleaving.
type TransferState int

const (
	StateRequested TransferState = iota
	StateSignatureSent
	StateDeltaReceived
	StateVerifying
	StateDone
	StateRedo
)

// PendingTransfer tracks one in-flight file index through the receiver's
// side of that sequence.
type PendingTransfer struct {
	NDX   int32
	Path  string
	State TransferState

	// Redone is true once this index has already consumed its one
	// allowed retry.
	Redone bool
}

// Advance moves p to next, returning an error if the transition violates
// the strict per-index ordering.
func (p *PendingTransfer) Advance(next TransferState) error {
	if !validTransition(p.State, next) {
		return ErrInvalidTransition
	}
	p.State = next
	return nil
}

func validTransition(from, to TransferState) bool {
	switch from {
	case StateRequested:
		return to == StateSignatureSent
	case StateSignatureSent:
		return to == StateDeltaReceived
	case StateDeltaReceived:
		return to == StateVerifying
	case StateVerifying:
		return to == StateDone || to == StateRedo
	case StateRedo:
		return to == StateSignatureSent
	default:
		return false
	}
}

// PendingSet tracks PendingTransfers by NDX, enforcing that a given index
// never has more than one in flight at a time.
type PendingSet struct {
	byNdx map[int32]*PendingTransfer
}

func NewPendingSet() *PendingSet {
	return &PendingSet{byNdx: make(map[int32]*PendingTransfer)}
}

// Start begins tracking ndx; it returns ErrDuplicateTransfer if ndx is
// already in flight.
func (s *PendingSet) Start(ndx int32, path string) (*PendingTransfer, error) {
	if _, exists := s.byNdx[ndx]; exists {
		return nil, ErrDuplicateTransfer
	}
	p := &PendingTransfer{NDX: ndx, Path: path, State: StateRequested}
	s.byNdx[ndx] = p
	return p, nil
}

// Get returns the in-flight transfer for ndx, if any.
func (s *PendingSet) Get(ndx int32) (*PendingTransfer, bool) {
	p, ok := s.byNdx[ndx]
	return p, ok
}

// Finish stops tracking ndx (once Done, no further per-file
// messages for that index are expected).
func (s *PendingSet) Finish(ndx int32) {
	delete(s.byNdx, ndx)
}
