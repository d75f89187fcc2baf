package stream

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Neumenon/tjson/tjson"
	"github.com/Neumenon/tjson/transcode"
)

// Writer writes frames to an io.Writer.
type Writer struct {
	w           io.Writer
	codec       transcode.Codec
	withCRC     bool        // Whether to compute and include CRC
	withSum     bool        // Whether to include value fingerprints
	compression Compression // Compression attempted for every payload
	sumOpts     tjson.EncodeOptions
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCodec sets the payload codec (default: transcode.Default).
func WithCodec(c transcode.Codec) WriterOption {
	return func(w *Writer) {
		w.codec = c
	}
}

// WithCRC makes the writer compute a CRC for each frame.
func WithCRC() WriterOption {
	return func(w *Writer) {
		w.withCRC = true
	}
}

// WithSum makes the writer attach the fingerprint of each value.
func WithSum() WriterOption {
	return func(w *Writer) {
		w.withSum = true
	}
}

// WithCompression compresses payloads with c. Payloads that do not
// shrink are written uncompressed.
func WithCompression(c Compression) WriterOption {
	return func(w *Writer) {
		w.compression = c
	}
}

// WithSumOptions sets the encode options used to fingerprint values,
// which must allow the deepest value written.
func WithSumOptions(opts tjson.EncodeOptions) WriterOption {
	return func(w *Writer) {
		w.sumOpts = opts
	}
}

// NewWriter creates a new frame writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	writer := &Writer{w: w, codec: transcode.Default, sumOpts: tjson.DefaultEncodeOptions()}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}

// WriteFrame writes a single frame. Payload is the uncompressed codec
// output; compression and CRC are applied here.
//
// Format:
//
//	@frame{v=1 sid=N seq=N kind=K enc=E len=N [crc=X] [z=C raw=N] [sum=blake3:X]}\n
//	<payload bytes>\n
func (w *Writer) WriteFrame(f *Frame) error {
	encoding := f.Encoding
	if encoding == "" {
		encoding = w.codec.Name()
	}

	payload := f.Payload
	compression := f.Compression
	if compression == CompressionNone {
		compression = w.compression
	}
	if compression != CompressionNone && len(payload) > 0 {
		compressed, err := compressPayload(payload, compression)
		switch {
		case errors.Is(err, errIncompressible):
			compression = CompressionNone
		case err != nil:
			return fmt.Errorf("compress payload: %w", err)
		default:
			payload = compressed
		}
	} else {
		compression = CompressionNone
	}

	var header strings.Builder
	header.WriteString("@frame{")

	// Required fields
	header.WriteString("v=")
	if f.Version == 0 {
		header.WriteString(strconv.Itoa(int(Version)))
	} else {
		header.WriteString(strconv.Itoa(int(f.Version)))
	}

	header.WriteString(" sid=")
	header.WriteString(strconv.FormatUint(f.SID, 10))

	header.WriteString(" seq=")
	header.WriteString(strconv.FormatUint(f.Seq, 10))

	header.WriteString(" kind=")
	header.WriteString(f.Kind.String())

	header.WriteString(" enc=")
	header.WriteString(encoding)

	header.WriteString(" len=")
	header.WriteString(strconv.Itoa(len(payload)))

	// Optional CRC, over the wire bytes
	crc := f.CRC
	if crc == nil && w.withCRC && len(payload) > 0 {
		computed := ComputeCRC(payload)
		crc = &computed
	}
	if crc != nil {
		fmt.Fprintf(&header, " crc=%08x", *crc)
	}

	// Optional compression
	if compression != CompressionNone {
		header.WriteString(" z=")
		header.WriteString(compression.String())
		header.WriteString(" raw=")
		header.WriteString(strconv.Itoa(len(f.Payload)))
	}

	// Optional value fingerprint
	if f.Sum != nil {
		header.WriteString(" sum=blake3:")
		header.WriteString(SumToHex(*f.Sum))
	}

	header.WriteString("}\n")

	// Write header
	if _, err := io.WriteString(w.w, header.String()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Write payload
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}

	// Write trailing newline
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}

	return nil
}

// WriteValue encodes v with the writer's codec and writes a value frame.
func (w *Writer) WriteValue(sid, seq uint64, v *tjson.Value) error {
	return w.writeEncoded(sid, seq, KindValue, v)
}

// WriteErr writes an error frame describing err (see ErrorValue).
func (w *Writer) WriteErr(sid, seq uint64, err error) error {
	return w.writeEncoded(sid, seq, KindErr, ErrorValue(err))
}

// WriteEnd writes the end frame for a stream, reporting how many value
// frames it carried (see EndValue).
func (w *Writer) WriteEnd(sid, seq uint64, count int64) error {
	return w.writeEncoded(sid, seq, KindEnd, EndValue(count))
}

func (w *Writer) writeEncoded(sid, seq uint64, kind FrameKind, v *tjson.Value) error {
	payload, err := w.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", kind, err)
	}
	f := &Frame{
		Version:  Version,
		SID:      sid,
		Seq:      seq,
		Kind:     kind,
		Encoding: w.codec.Name(),
		Payload:  payload,
	}
	if w.withSum {
		sum, err := ValueSumWithOpts(v, w.sumOpts)
		if err != nil {
			return fmt.Errorf("fingerprint %s frame: %w", kind, err)
		}
		f.Sum = &sum
	}
	return w.WriteFrame(f)
}
