package negotiate

import (
	"fmt"
	"io"
	"strings"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/wire"
)

// NegotiatedAlgorithms is the outcome of algorithm negotiation.
type NegotiatedAlgorithms struct {
	Checksum    checksum.Type
	Compression muxio.CompressionAlgo
}

// ChecksumPreference is the fixed checksum preference order, strongest
// first (xxh128 xxh3 xxh64 md5 md4 sha1 none). "sha1"
// and "none" are included as vstring entries for wire compatibility with
// peers that advertise them, even though this engine never selects them
// (it has no SHA-1 digester and no unchecksummed-transfer mode).
var ChecksumPreference = []string{"xxh128", "xxh3", "xxh64", "md5", "md4", "sha1", "none"}

// CompressionPreference is the fixed compression preference order,
// strongest first (zstd lz4 zlibx zlib none).
var CompressionPreference = []string{"zstd", "lz4", "zlibx", "zlib", "none"}

const maxAlgoListLen = 256

// WriteNameList writes names as a single space-joined vstring.
func WriteNameList(w io.Writer, names []string) error {
	return wire.WriteVString(w, []byte(strings.Join(names, " ")))
}

// ReadNameList reads a name list written by WriteNameList.
func ReadNameList(r io.Reader) ([]string, error) {
	s, err := wire.ReadVString(r, maxAlgoListLen)
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, nil
	}
	return strings.Fields(string(s)), nil
}

// PickFirstMatch selects the first name in readerList that writerList also
// contains: the first name in the reader's list that the writer
// advertised wins. Both sides compute the same
// result by construction: each independently has both lists.
func PickFirstMatch(readerList, writerList []string) (string, bool) {
	writerSet := make(map[string]bool, len(writerList))
	for _, n := range writerList {
		writerSet[n] = true
	}
	for _, n := range readerList {
		if writerSet[n] {
			return n, true
		}
	}
	return "", false
}

// NegotiateChecksum resolves the reader's and writer's checksum preference
// lists to a single checksum.Type.
func NegotiateChecksum(readerList, writerList []string) (checksum.Type, error) {
	name, ok := PickFirstMatch(readerList, writerList)
	if !ok {
		return 0, fmt.Errorf("%w: no common checksum algorithm between %v and %v", ErrUnknownAlgorithm, readerList, writerList)
	}
	t, ok := checksum.ParseType(name)
	if !ok {
		return 0, fmt.Errorf("%w: checksum algorithm %q has no local implementation", ErrUnknownAlgorithm, name)
	}
	return t, nil
}

// NegotiateCompression resolves the reader's and writer's compression
// preference lists to a single muxio.CompressionAlgo.
func NegotiateCompression(readerList, writerList []string) (muxio.CompressionAlgo, error) {
	name, ok := PickFirstMatch(readerList, writerList)
	if !ok {
		return 0, fmt.Errorf("%w: no common compression algorithm between %v and %v", ErrUnknownAlgorithm, readerList, writerList)
	}
	algo, ok := muxio.ParseCompressionAlgo(name)
	if !ok {
		return 0, fmt.Errorf("%w: compression algorithm %q has no local implementation", ErrUnknownAlgorithm, name)
	}
	return algo, nil
}
