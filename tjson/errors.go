package tjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Decode error kinds. Every error returned by a decode operation wraps
// exactly one of these; test with errors.Is.
var (
	ErrUnknownDiscriminator    = errors.New("tjson: unknown discriminator")
	ErrInvalidIntegerLiteral   = errors.New("tjson: invalid integer literal")
	ErrInvalidFloatLiteral     = errors.New("tjson: invalid float literal")
	ErrByteOutOfRange          = errors.New("tjson: byte out of range")
	ErrInvalidTemporalLiteral  = errors.New("tjson: invalid temporal literal")
	ErrMissingField            = errors.New("tjson: missing field")
	ErrUnexpectedPathElement   = errors.New("tjson: unexpected path element")
	ErrStructuralDepthExceeded = errors.New("tjson: structural depth exceeded")
	ErrMalformedEnvelope       = errors.New("tjson: malformed envelope")
	ErrUnexpectedPayload       = errors.New("tjson: unexpected payload shape")
	ErrSyntax                  = errors.New("tjson: syntax error")
)

// Error describes a failed decode or encode. Path locates the offending
// unit in JSON-pointer form (e.g. "/_value/2/_value/_properties/name").
type Error struct {
	Op     string // "decode" or "encode"
	Kind   error  // one of the Err* sentinels
	Path   string
	Field  string // set for ErrMissingField
	Detail string // discriminator seen, offending text, ...
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += " " + strconv.Quote(e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func decodeErr(kind error, format string, args ...any) *Error {
	return &Error{Op: "decode", Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func missingField(name string) *Error {
	return &Error{Op: "decode", Kind: ErrMissingField, Field: name}
}

// at prefixes the path of err with segment. Errors are built fresh on
// the failing call chain, so the prefix is applied in place while the
// recursion unwinds.
func at(err error, segment string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Path = "/" + segment + e.Path
	}
	return err
}

// describe names the tree type of a payload for error details.
func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case json.Number, float64, float32:
		return "number"
	}
	if _, ok := toInt64(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
