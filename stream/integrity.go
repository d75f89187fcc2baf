package stream

import (
	"encoding/hex"
	"hash/crc32"

	"github.com/Neumenon/tjson/tjson"
)

// crcTable is the IEEE CRC-32 table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// VerifyCRC verifies that the CRC matches.
func VerifyCRC(data []byte, expected uint32) bool {
	return ComputeCRC(data) == expected
}

// ValueSum returns the fingerprint carried in sum= headers: BLAKE3-256
// of the canonical envelope JSON, independent of the frame's codec.
func ValueSum(v *tjson.Value) ([32]byte, error) {
	return tjson.Fingerprint(v)
}

// ValueSumWithOpts is like ValueSum for values nested beyond the
// default limit.
func ValueSumWithOpts(v *tjson.Value, opts tjson.EncodeOptions) ([32]byte, error) {
	return tjson.FingerprintWithOpts(v, opts)
}

// SumToHex converts a 32-byte sum to lowercase hex.
func SumToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToSum parses a 64-character hex string to a 32-byte sum.
func HexToSum(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}
