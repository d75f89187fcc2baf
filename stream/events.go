package stream

import (
	"errors"
	"fmt"

	"github.com/Neumenon/tjson/tjson"
)

// ============================================================
// Standard payloads for err and end frames
// ============================================================
//
// These are the payload schemas for kind=err and kind=end frames. They
// are ordinary typed values, so every codec carries them.

// RemoteError is an error reported by the other side of a stream.
type RemoteError struct {
	Kind    string // error kind, e.g. "tjson: invalid integer literal"
	Message string // full message
	Path    string // location inside the offending value, if known
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote: %s (at %s)", e.Message, e.Path)
	}
	return "remote: " + e.Message
}

// ErrorValue describes err as a value.
// Payload: Map{kind: String, message: String[, path: String]}
func ErrorValue(err error) *tjson.Value {
	entries := map[string]*tjson.Value{
		"kind":    tjson.Str("error"),
		"message": tjson.Str(err.Error()),
	}
	var e *tjson.Error
	if errors.As(err, &e) {
		entries["kind"] = tjson.Str(e.Kind.Error())
		if e.Path != "" {
			entries["path"] = tjson.Str(e.Path)
		}
	}
	return tjson.Map(entries)
}

// ErrorFromValue reads an err frame payload back.
func ErrorFromValue(v *tjson.Value) (*RemoteError, error) {
	if v.Kind() != tjson.KindMap {
		return nil, fmt.Errorf("err payload is %s, want Map", v.Kind())
	}
	message, err := v.Get("message").AsStr()
	if err != nil {
		return nil, fmt.Errorf("err payload message: %w", err)
	}
	re := &RemoteError{Message: message}
	if k := v.Get("kind"); k != nil {
		re.Kind, _ = k.AsStr()
	}
	if p := v.Get("path"); p != nil {
		re.Path, _ = p.AsStr()
	}
	return re, nil
}

// EndValue is the payload of an end frame.
// Payload: Map{count: Integer}
func EndValue(count int64) *tjson.Value {
	return tjson.Map(map[string]*tjson.Value{"count": tjson.Int(count)})
}

// EndCount reads the value count from an end frame payload.
func EndCount(v *tjson.Value) (int64, error) {
	if v.Kind() != tjson.KindMap {
		return 0, fmt.Errorf("end payload is %s, want Map", v.Kind())
	}
	return v.Get("count").AsInt()
}
