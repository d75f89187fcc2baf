// Package stream implements record framing for typed values.
//
// A frame carries one encoded envelope and provides:
//   - Message boundaries and resync
//   - Multiplexing via stream IDs (sid)
//   - Ordering via sequence numbers (seq)
//   - Integrity via optional CRC-32 and value fingerprint (sum)
//   - Optional payload compression (zstd, lz4)
//
// Text form:
//
//	@frame{v=1 sid=N seq=N kind=K enc=E len=N [crc=X] [z=C raw=N] [sum=blake3:X]}\n
//	<payload bytes>\n
//
// The payload is the value in the codec named by enc (see package
// transcode), compressed when z is present. len counts payload bytes on
// the wire, raw counts them after decompression, and crc covers the wire
// bytes.
package stream

import (
	"fmt"
	"strconv"
)

// Version is the frame format version.
const Version uint8 = 1

// FrameKind indicates the semantic category of a frame's payload.
type FrameKind uint8

const (
	KindValue FrameKind = 0 // A typed value
	KindErr   FrameKind = 1 // An error report (see ErrorValue)
	KindEnd   FrameKind = 2 // End of stream for this SID; payload may be empty
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindErr:
		return "err"
	case KindEnd:
		return "end"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind name or numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "value", "0":
		return KindValue, true
	case "err", "1":
		return KindErr, true
	case "end", "2":
		return KindEnd, true
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return FrameKind(n), true
}

// Frame represents a single frame.
type Frame struct {
	// Required fields
	Version  uint8     // Format version (must be 1)
	SID      uint64    // Stream identifier
	Seq      uint64    // Sequence number (per-SID, monotonic)
	Kind     FrameKind // Frame kind
	Encoding string    // Codec name of the payload
	Payload  []byte    // Payload bytes, decompressed once read

	// Optional fields
	CRC         *uint32     // CRC-32 of the wire payload (nil if not present)
	Compression Compression // Wire compression of the payload
	Sum         *[32]byte   // Fingerprint of the decoded value (nil if not present)
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// HasSum returns true if a value fingerprint is present.
func (f *Frame) HasSum() bool {
	return f.Sum != nil
}

// IsEnd returns true if this frame ends its SID.
func (f *Frame) IsEnd() bool {
	return f.Kind == KindEnd
}

// MaxPayloadSize is the default maximum payload size (64 MiB), applied
// both to wire bytes and to decompressed bytes.
const MaxPayloadSize = 64 * 1024 * 1024

// ParseError reports a malformed frame.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("frame: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("frame: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("frame: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// SumMismatchError is returned when the decoded value does not match the
// fingerprint carried in the header.
type SumMismatchError struct {
	Expected [32]byte
	Got      [32]byte
}

func (e *SumMismatchError) Error() string {
	return fmt.Sprintf("frame: value fingerprint mismatch: expected %s, got %s",
		SumToHex(e.Expected), SumToHex(e.Got))
}
