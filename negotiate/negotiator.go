package negotiate

import (
	"fmt"
	"io"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/muxio"
)

// Mode selects which half of the algorithm-negotiation flow a side runs:
// daemon mode is unidirectional, remote-shell mode bidirectional.
type Mode int

const (
	// ModeShell is the bidirectional remote-shell flow: each side sends
	// then reads.
	ModeShell Mode = iota
	// ModeDaemonServer sends its preference lists; the client picks.
	ModeDaemonServer
	// ModeDaemonClient reads the server's lists and picks; it applies no
	// preference list of its own.
	ModeDaemonClient
)

// Result is the complete outcome of a negotiation handshake.
type Result struct {
	Protocol    ProtocolVersion
	CompatFlags CompatFlags
	Seed        int32
	SeedOrder   SeedPosition
	Algorithms  NegotiatedAlgorithms
}

// Negotiator drives one side of the handshake over a prologue connection
// (unframed - muxio activation happens only after negotiation
// completes).
type Negotiator struct {
	rw          io.ReadWriter
	localMax    int
	localFlags  CompatFlags
	isSender    bool
	mode        Mode
}

// NewNegotiator builds a Negotiator. localMax is this side's maximum
// supported protocol version; localFlags is this side's advertised
// compat-flag set; isSender selects which side generates the checksum
// seed (generated on the sender side).
func NewNegotiator(rw io.ReadWriter, localMax int, localFlags CompatFlags, isSender bool, mode Mode) *Negotiator {
	return &Negotiator{rw: rw, localMax: localMax, localFlags: localFlags, isSender: isSender, mode: mode}
}

// Negotiate runs the handshake that follows the version exchange: it
// settles the protocol version, exchanges compat flags (protocol >= 30),
// generates the checksum seed on the sender side (ExchangeSeed transmits
// it), and negotiates algorithms (protocol >= 30 with
// VARINT_FLIST_FLAGS). peerMax is the
// peer's advertised maximum protocol version, already read by the caller
// (its wire representation differs between binary and daemon-greeting
// modes, so reading it is left to the caller).
func (n *Negotiator) Negotiate(peerMax int) (Result, error) {
	var res Result

	proto, err := NegotiateVersion(n.localMax, peerMax)
	if err != nil {
		return res, err
	}
	res.Protocol = proto

	effectiveFlags := n.localFlags
	if proto.SupportsCompatFlags() {
		if err := WriteCompatFlags(n.rw, n.localFlags); err != nil {
			return res, fmt.Errorf("negotiate: writing compat flags: %w", err)
		}
		peerFlags, err := ReadCompatFlags(n.rw)
		if err != nil {
			return res, fmt.Errorf("%w: reading compat flags: %v", ErrNegotiationTruncated, err)
		}
		effectiveFlags = Intersect(n.localFlags, peerFlags)
	}
	res.CompatFlags = effectiveFlags
	res.SeedOrder = SeedOrder(effectiveFlags)

	if n.isSender {
		res.Seed = GenerateSeed()
	}

	algoNegotiated := proto.SupportsCompatFlags() && effectiveFlags.Has(VarintFlistFlags)
	if algoNegotiated {
		algos, err := n.negotiateAlgorithms()
		if err != nil {
			return res, err
		}
		res.Algorithms = algos
	} else {
		res.Algorithms = NegotiatedAlgorithms{Checksum: defaultChecksumForProtocol(int(proto)), Compression: muxio.CompressNone}
	}

	return res, nil
}

// ExchangeSeed performs the checksum-seed transfer at the point the
// caller's session loop has reached (before or after the file list,
// according to res.SeedOrder) - kept as a separate step since its wire
// position relative to the file list is the caller's responsibility, not
// the negotiator's.
func (n *Negotiator) ExchangeSeed(seed int32) (int32, error) {
	if n.isSender {
		if err := WriteSeed(n.rw, seed); err != nil {
			return 0, err
		}
		return seed, nil
	}
	return ReadSeed(n.rw)
}

func (n *Negotiator) negotiateAlgorithms() (NegotiatedAlgorithms, error) {
	switch n.mode {
	case ModeDaemonClient:
		checksumList, err := ReadNameList(n.rw)
		if err != nil {
			return NegotiatedAlgorithms{}, fmt.Errorf("%w: reading checksum list: %v", ErrNegotiationTruncated, err)
		}
		compressionList, err := ReadNameList(n.rw)
		if err != nil {
			return NegotiatedAlgorithms{}, fmt.Errorf("%w: reading compression list: %v", ErrNegotiationTruncated, err)
		}
		cs, err := NegotiateChecksum(ChecksumPreference, checksumList)
		if err != nil {
			return NegotiatedAlgorithms{}, err
		}
		comp, err := NegotiateCompression(CompressionPreference, compressionList)
		if err != nil {
			return NegotiatedAlgorithms{}, err
		}
		return NegotiatedAlgorithms{Checksum: cs, Compression: comp}, nil

	case ModeDaemonServer:
		if err := WriteNameList(n.rw, ChecksumPreference); err != nil {
			return NegotiatedAlgorithms{}, err
		}
		if err := WriteNameList(n.rw, CompressionPreference); err != nil {
			return NegotiatedAlgorithms{}, err
		}
		return NegotiatedAlgorithms{Checksum: checksum.Md5, Compression: muxio.CompressNone}, nil

	default: // ModeShell: bidirectional, each side sends then reads.
		if err := WriteNameList(n.rw, ChecksumPreference); err != nil {
			return NegotiatedAlgorithms{}, err
		}
		if err := WriteNameList(n.rw, CompressionPreference); err != nil {
			return NegotiatedAlgorithms{}, err
		}
		peerChecksumList, err := ReadNameList(n.rw)
		if err != nil {
			return NegotiatedAlgorithms{}, fmt.Errorf("%w: reading checksum list: %v", ErrNegotiationTruncated, err)
		}
		peerCompressionList, err := ReadNameList(n.rw)
		if err != nil {
			return NegotiatedAlgorithms{}, fmt.Errorf("%w: reading compression list: %v", ErrNegotiationTruncated, err)
		}
		cs, err := NegotiateChecksum(ChecksumPreference, peerChecksumList)
		if err != nil {
			return NegotiatedAlgorithms{}, err
		}
		comp, err := NegotiateCompression(CompressionPreference, peerCompressionList)
		if err != nil {
			return NegotiatedAlgorithms{}, err
		}
		return NegotiatedAlgorithms{Checksum: cs, Compression: comp}, nil
	}
}

func defaultChecksumForProtocol(protocolVersion int) checksum.Type {
	if protocolVersion >= 30 {
		return checksum.Md5
	}
	return checksum.Md4
}
