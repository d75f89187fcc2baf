package tjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ============================================================
// JSON text front-end
// ============================================================
//
// Text is read token by token into a generic tree with json.Number for
// numbers, so ByteArray elements are never routed through float64, and
// then handed to the dispatch layer. The tree reader bounds nesting
// itself, before any envelope is inspected.

// jsonLevelsPerEnvelope is the most JSON containers one envelope opens:
// the envelope object, a graph payload object, its properties map and
// one spare for labels.
const jsonLevelsPerEnvelope = 4

// Unmarshal decodes one envelope from JSON text.
func Unmarshal(data []byte) (*Value, error) {
	return UnmarshalWithOpts(data, DefaultDecodeOptions())
}

// UnmarshalWithOpts decodes one envelope from JSON text with options.
func UnmarshalWithOpts(data []byte, opts DecodeOptions) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tree, err := readTree(dec, jsonLevelsPerEnvelope*opts.maxDepth())
	if err != nil {
		if err == io.EOF {
			return nil, decodeErr(ErrSyntax, "empty input")
		}
		return nil, syntaxErr(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, decodeErr(ErrSyntax, "trailing data after envelope")
	}
	return FromTreeWithOpts(tree, opts)
}

// readTree reads the next JSON value from dec. It returns io.EOF only
// when no value starts before the end of input, and an
// ErrStructuralDepthExceeded error once arrays and objects nest deeper
// than limit.
func readTree(dec *json.Decoder, limit int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return readNode(dec, tok, limit)
}

func readNode(dec *json.Decoder, tok json.Token, limit int) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if limit <= 0 {
		return nil, decodeErr(ErrStructuralDepthExceeded, "JSON containers nest too deeply")
	}
	switch delim {
	case '[':
		items := []any{}
		for dec.More() {
			item, err := readChild(dec, limit)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, readClose(dec)
	case '{':
		obj := map[string]any{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", tok)
			}
			val, err := readChild(dec, limit)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		return obj, readClose(dec)
	}
	return nil, fmt.Errorf("unexpected %q", delim)
}

func readChild(dec *json.Decoder, limit int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	return readNode(dec, tok, limit-1)
}

// readClose consumes the closing delimiter of the current container.
func readClose(dec *json.Decoder) error {
	_, err := dec.Token()
	return unexpectedEOF(err)
}

// unexpectedEOF reports the end of input inside a value.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// syntaxErr classifies a failure of the tree reader. Errors that are
// already typed pass through.
func syntaxErr(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return decodeErr(ErrSyntax, "%v", err)
}

// Marshal encodes v as compact envelope JSON. Object keys are sorted, so
// equal values produce identical bytes. HTML characters are not escaped.
func Marshal(v *Value) ([]byte, error) {
	return marshal(v, "", DefaultEncodeOptions())
}

// MarshalWithOpts is like Marshal with options.
func MarshalWithOpts(v *Value, opts EncodeOptions) ([]byte, error) {
	return marshal(v, "", opts)
}

// MarshalIndent is like Marshal but indents nested objects.
func MarshalIndent(v *Value, indent string) ([]byte, error) {
	return marshal(v, indent, DefaultEncodeOptions())
}

func marshal(v *Value, indent string, opts EncodeOptions) ([]byte, error) {
	tree, err := ToTreeWithOpts(v, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("tjson: write JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJSON implements json.Marshaler.
func (v *Value) MarshalJSON() ([]byte, error) {
	return Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

// ============================================================
// Streams of envelopes
// ============================================================

// Decoder reads a sequence of top-level envelopes, separated by optional
// whitespace, from a reader.
type Decoder struct {
	dec  *json.Decoder
	opts DecodeOptions
}

// NewDecoder creates a Decoder with default options.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithOpts(r, DefaultDecodeOptions())
}

// NewDecoderWithOpts creates a Decoder with options.
func NewDecoderWithOpts(r io.Reader, opts DecodeOptions) *Decoder {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()
	return &Decoder{dec: dec, opts: opts}
}

// More reports whether another envelope may follow.
func (d *Decoder) More() bool {
	return d.dec.More()
}

// Decode reads the next envelope. It returns io.EOF when the input is
// exhausted. After a syntax or nesting error the stream cannot be
// resumed; a decode error in a well-formed envelope leaves the stream
// positioned at the next one.
func (d *Decoder) Decode() (*Value, error) {
	tree, err := readTree(d.dec, jsonLevelsPerEnvelope*d.opts.maxDepth())
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, syntaxErr(err)
	}
	return FromTreeWithOpts(tree, d.opts)
}

// Encoder writes envelopes as newline-delimited JSON.
type Encoder struct {
	w      io.Writer
	indent string
	opts   EncodeOptions
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderWithOpts(w, DefaultEncodeOptions())
}

// NewEncoderWithOpts creates an Encoder with options.
func NewEncoderWithOpts(w io.Writer, opts EncodeOptions) *Encoder {
	return &Encoder{w: w, opts: opts}
}

// SetIndent makes subsequent envelopes multi-line.
func (e *Encoder) SetIndent(indent string) {
	e.indent = indent
}

// Encode writes v followed by a newline.
func (e *Encoder) Encode(v *Value) error {
	data, err := marshal(v, e.indent, e.opts)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("tjson: write: %w", err)
	}
	return nil
}
