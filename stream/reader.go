package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Neumenon/tjson/tjson"
	"github.com/Neumenon/tjson/transcode"
)

// maxHeaderLen bounds a header line, newline included.
const maxHeaderLen = 4096

// Reader reads frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	verifySum  bool
	decodeOpts tjson.DecodeOptions
	logger     *slog.Logger
	offset     int // bytes consumed so far
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithCRCVerification turns CRC verification on or off (default: on).
func WithCRCVerification(on bool) ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = on
	}
}

// WithSumVerification turns fingerprint verification of decoded values
// on or off (default: on).
func WithSumVerification(on bool) ReaderOption {
	return func(r *Reader) {
		r.verifySum = on
	}
}

// WithDecodeOptions sets the options used to decode payloads.
func WithDecodeOptions(opts tjson.DecodeOptions) ReaderOption {
	return func(r *Reader) {
		r.decodeOpts = opts
	}
}

// WithLogger sets a logger for debug records about rejected frames.
func WithLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = l
	}
}

// NewReader creates a new frame reader.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReaderSize(r, maxHeaderLen),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true, // verify by default
		verifySum:  true,
		decodeOpts: tjson.DefaultDecodeOptions(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(reader)
	}
	if reader.logger == nil {
		reader.logger = slog.New(slog.DiscardHandler)
	}
	return reader
}

// Next reads and returns the next frame with its payload decompressed.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	start := r.offset

	// Read header line
	line, err := r.r.ReadSlice('\n')
	r.offset += len(line)
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, &ParseError{Reason: "header line too long", Offset: start}
	case err == io.EOF && len(bytes.TrimSpace(line)) == 0:
		return nil, io.EOF
	case err != nil && err != io.EOF:
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Parse header
	frame, h, err := parseHeader(string(line))
	if err != nil {
		if pe, ok := err.(*ParseError); ok && pe.Offset >= 0 {
			pe.Offset += start
		}
		return nil, err
	}

	// Read exact payload bytes
	if h.wireLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", h.wireLen, r.maxPayload), Offset: -1}
	}
	if h.wireLen > 0 {
		frame.Payload = make([]byte, h.wireLen)
		n, err := io.ReadFull(r.r, frame.Payload)
		r.offset += n
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}

	// Consume trailing newline (optional at EOF)
	if b, err := r.r.ReadByte(); err == nil {
		if b != '\n' {
			// Put it back - it's part of the next frame
			_ = r.r.UnreadByte()
			r.logger.Debug("frame: missing newline after payload", "seq", frame.Seq, "offset", r.offset)
		} else {
			r.offset++
		}
	}

	// Verify CRC if present and verification enabled
	if r.verifyCRC && frame.CRC != nil {
		computed := ComputeCRC(frame.Payload)
		if computed != *frame.CRC {
			r.logger.Debug("frame: CRC mismatch", "sid", frame.SID, "seq", frame.Seq,
				"expected", fmt.Sprintf("%08x", *frame.CRC), "got", fmt.Sprintf("%08x", computed))
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}

	// Decompress
	if frame.Compression != CompressionNone {
		if h.rawLen < 0 {
			return nil, &ParseError{Reason: "compressed frame without raw", Offset: start}
		}
		if h.rawLen > r.maxPayload {
			return nil, &ParseError{Reason: fmt.Sprintf("decompressed payload too large: %d > %d", h.rawLen, r.maxPayload), Offset: -1}
		}
		frame.Payload, err = decompressPayload(frame.Payload, frame.Compression, h.rawLen)
		if err != nil {
			return nil, fmt.Errorf("frame seq=%d: %w", frame.Seq, err)
		}
	}

	return frame, nil
}

// Decode decodes the payload of f through the codec named in its header
// and checks the fingerprint when one is present.
func (r *Reader) Decode(f *Frame) (*tjson.Value, error) {
	codec, err := transcode.LookupWithOpts(f.Encoding, r.decodeOpts)
	if err != nil {
		return nil, err
	}
	v, err := codec.Unmarshal(f.Payload)
	if err != nil {
		r.logger.Debug("frame: payload rejected", "sid", f.SID, "seq", f.Seq, "enc", f.Encoding, "error", err)
		return nil, fmt.Errorf("frame seq=%d: %w", f.Seq, err)
	}
	if r.verifySum && f.Sum != nil {
		got, err := ValueSumWithOpts(v, r.decodeOpts.EncodeOptions())
		if err != nil {
			return nil, err
		}
		if got != *f.Sum {
			return nil, &SumMismatchError{Expected: *f.Sum, Got: got}
		}
	}
	return v, nil
}

// ReadValue reads the next frame and decodes its payload.
func (r *Reader) ReadValue() (*Frame, *tjson.Value, error) {
	f, err := r.Next()
	if err != nil {
		return nil, nil, err
	}
	v, err := r.Decode(f)
	if err != nil {
		return f, nil, err
	}
	return f, v, nil
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// header holds the length fields of a parsed header.
type header struct {
	wireLen int
	rawLen  int // -1 if absent
}

// parseHeader parses the @frame{...} header line.
func parseHeader(line string) (*Frame, header, error) {
	h := header{rawLen: -1}
	line = strings.TrimSpace(line)

	// Check prefix
	if !strings.HasPrefix(line, "@frame{") {
		return nil, h, &ParseError{Reason: "expected @frame{", Offset: 0}
	}

	// Find closing brace
	endIdx := strings.LastIndex(line, "}")
	if endIdx < 0 {
		return nil, h, &ParseError{Reason: "missing closing }", Offset: len(line)}
	}

	// Extract key=value content
	content := line[len("@frame{"):endIdx]

	// Parse key=value pairs
	frame := &Frame{Version: Version, Encoding: transcode.Default.Name()}

	for _, pair := range tokenize(content) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			continue // skip malformed pairs
		}

		switch key {
		case "v":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid version", Offset: -1}
			}
			if uint8(v) != Version {
				return nil, h, &ParseError{Reason: "unsupported version " + val, Offset: -1}
			}
			frame.Version = uint8(v)

		case "sid":
			sid, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid sid", Offset: -1}
			}
			frame.SID = sid

		case "seq":
			seq, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid seq", Offset: -1}
			}
			frame.Seq = seq

		case "kind":
			kind, ok := ParseKind(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid kind: " + val, Offset: -1}
			}
			frame.Kind = kind

		case "enc":
			if val == "" {
				return nil, h, &ParseError{Reason: "empty enc", Offset: -1}
			}
			frame.Encoding = val

		case "len":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid len", Offset: -1}
			}
			h.wireLen = int(l)

		case "raw":
			l, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, h, &ParseError{Reason: "invalid raw", Offset: -1}
			}
			h.rawLen = int(l)

		case "crc":
			crc, ok := parseCRC(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid crc: " + val, Offset: -1}
			}
			frame.CRC = &crc

		case "z":
			c, err := ParseCompression(val)
			if err != nil {
				return nil, h, &ParseError{Reason: err.Error(), Offset: -1}
			}
			frame.Compression = c

		case "sum":
			sum, ok := parseSum(val)
			if !ok {
				return nil, h, &ParseError{Reason: "invalid sum: " + val, Offset: -1}
			}
			frame.Sum = &sum
		}
	}

	return frame, h, nil
}

// tokenize splits key=value pairs separated by spaces or commas.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(c rune) bool {
		return c == ' ' || c == ',' || c == '\t'
	})
}

// parseCRC parses CRC value: "crc32:XXXXXXXX" or "XXXXXXXX"
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")
	if len(val) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// parseSum parses a fingerprint: "blake3:XXXX..." or "XXXX..."
func parseSum(val string) ([32]byte, bool) {
	return HexToSum(strings.TrimPrefix(val, "blake3:"))
}
