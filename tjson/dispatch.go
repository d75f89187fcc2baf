package tjson

import (
	"errors"
	"log/slog"
)

// Envelope field names.
const (
	fieldType  = "$type"
	fieldValue = "_value"
)

// DefaultMaxDepth bounds envelope nesting for decode and encode unless
// options raise or lower it.
const DefaultMaxDepth = 512

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// MaxDepth is the maximum number of nested envelopes. Zero means
	// DefaultMaxDepth.
	MaxDepth int

	// Logger receives a debug record for every failed decode. Nil
	// disables logging.
	Logger *slog.Logger
}

// DefaultDecodeOptions returns the default decode options.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{MaxDepth: DefaultMaxDepth}
}

func (o DecodeOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Depth returns the effective nesting limit.
func (o DecodeOptions) Depth() int {
	return o.maxDepth()
}

// EncodeOptions returns encode options with the same nesting limit, so
// every value accepted under o can be written back.
func (o DecodeOptions) EncodeOptions() EncodeOptions {
	return EncodeOptions{MaxDepth: o.maxDepth()}
}

// EncodeOptions configures encoding.
type EncodeOptions struct {
	// MaxDepth is the maximum number of nested envelopes written. Zero
	// means DefaultMaxDepth.
	MaxDepth int
}

// DefaultEncodeOptions returns the default encode options.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{MaxDepth: DefaultMaxDepth}
}

func (o EncodeOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// ============================================================
// FromTree - envelope tree to Value
// ============================================================

// FromTree decodes a generic envelope tree, as produced by a JSON, CBOR
// or MessagePack decoder targeting any, into a Value.
//
// Accepted node types are map[string]any, []any, string, bool, nil and
// the numeric types json.Number, float64 and the sized integers.
func FromTree(tree any) (*Value, error) {
	return FromTreeWithOpts(tree, DefaultDecodeOptions())
}

// FromTreeWithOpts decodes an envelope tree with options.
func FromTreeWithOpts(tree any, opts DecodeOptions) (*Value, error) {
	d := &decoder{maxDepth: opts.maxDepth()}
	v, err := d.envelope(tree)
	if err != nil {
		if opts.Logger != nil {
			var e *Error
			if errors.As(err, &e) {
				opts.Logger.Debug("tjson: decode failed",
					"kind", e.Kind.Error(), "path", e.Path, "field", e.Field, "detail", e.Detail)
			} else {
				opts.Logger.Debug("tjson: decode failed", "error", err)
			}
		}
		return nil, err
	}
	return v, nil
}

type decoder struct {
	maxDepth int
	depth    int
}

// envelope decodes one unit. The canonical shape is
// {"$type": <tag>, "_value": <payload>}; the compact shape
// {<tag>: <payload>} is accepted as well.
func (d *decoder) envelope(unit any) (*Value, error) {
	if d.depth >= d.maxDepth {
		return nil, decodeErr(ErrStructuralDepthExceeded, "more than %d nested envelopes", d.maxDepth)
	}
	d.depth++
	defer func() { d.depth-- }()

	obj, ok := unit.(map[string]any)
	if !ok {
		return nil, decodeErr(ErrMalformedEnvelope, "expected envelope object, got %s", describe(unit))
	}
	rawTag, ok := obj[fieldType]
	if !ok {
		if len(obj) == 1 {
			for tag, payload := range obj {
				if tag != fieldValue {
					return d.route(tag, payload, pointerEscape(tag))
				}
			}
		}
		return nil, missingField(fieldType)
	}
	tag, ok := rawTag.(string)
	if !ok {
		return nil, decodeErr(ErrMalformedEnvelope, "discriminator is %s, not string", describe(rawTag))
	}
	payload, ok := obj[fieldValue]
	if !ok {
		return nil, missingField(fieldValue)
	}
	if len(obj) != 2 {
		for k := range obj {
			if k != fieldType && k != fieldValue {
				return nil, decodeErr(ErrMalformedEnvelope, "unexpected field %q", k)
			}
		}
	}
	return d.route(tag, payload, fieldValue)
}

// route looks up tag and decodes payload, which sits at segment.
func (d *decoder) route(tag string, payload any, segment string) (*Value, error) {
	kind, ok := ParseKind(tag)
	if !ok {
		return nil, decodeErr(ErrUnknownDiscriminator, "%q", tag)
	}
	v, err := d.payload(kind, payload)
	if err != nil {
		return nil, at(err, segment)
	}
	return v, nil
}

// payload routes a payload to the codec of kind.
func (d *decoder) payload(kind Kind, p any) (*Value, error) {
	switch kind {
	case KindNull:
		return decodeNull(p)
	case KindBoolean:
		return decodeBool(p)
	case KindInteger:
		return decodeInt(p)
	case KindFloat:
		return decodeFloat(p)
	case KindString:
		return decodeString(p)
	case KindByteArray:
		return decodeBytes(p)
	case KindMap:
		return d.decodeMap(p)
	case KindList:
		return d.decodeList(p)
	case KindZonedDateTime, KindDateTime, KindTime, KindDate, KindDuration:
		return decodeTemporal(kind, p)
	case KindNode:
		return d.decodeNode(p)
	case KindRelationship:
		return d.decodeRelationship(p)
	case KindPath:
		return d.decodePath(p)
	}
	return nil, decodeErr(ErrUnknownDiscriminator, "%q", kind.String())
}

// ============================================================
// ToTree - Value to envelope tree
// ============================================================

// ToTree encodes v as a generic envelope tree made of map[string]any,
// []any, string, bool, int64 and nil. A nil v encodes as Null.
func ToTree(v *Value) (any, error) {
	return ToTreeWithOpts(v, DefaultEncodeOptions())
}

// ToTreeWithOpts encodes v as an envelope tree with options.
func ToTreeWithOpts(v *Value, opts EncodeOptions) (any, error) {
	e := &encoder{maxDepth: opts.maxDepth()}
	return e.envelope(v)
}

type encoder struct {
	maxDepth int
	depth    int
}

func (e *encoder) envelope(v *Value) (any, error) {
	return e.wrap(v.Kind(), func() (any, error) { return e.payload(v) })
}

func (e *encoder) payload(v *Value) (any, error) {
	switch v.Kind() {
	case KindNull:
		return nil, nil
	case KindBoolean:
		return v.boolVal, nil
	case KindInteger:
		return encodeInt(v.intVal), nil
	case KindFloat:
		return encodeFloat(v.floatVal), nil
	case KindString:
		return v.strVal, nil
	case KindByteArray:
		return encodeBytes(v.bytesVal), nil
	case KindMap:
		return e.encodeMap(v.mapVal)
	case KindList:
		return e.encodeList(v.listVal)
	case KindZonedDateTime, KindDateTime, KindTime, KindDate, KindDuration:
		return encodeTemporal(v), nil
	case KindNode:
		return e.encodeNode(v.nodeVal)
	case KindRelationship:
		return e.encodeRelationship(v.relVal)
	case KindPath:
		return e.encodePath(v.pathVal)
	}
	return nil, &Error{Op: "encode", Kind: ErrUnknownDiscriminator, Detail: v.Kind().String()}
}
