// Package transcode carries tjson envelopes in binary containers.
//
// Every codec maps a *tjson.Value to the same envelope tree used by the
// JSON text form ({"$type": ..., "_value": ...}) and serializes that tree
// with its container format. Decoding runs the container's generic
// decoder and hands the tree to tjson.FromTreeWithOpts, so all codecs
// share one set of decode rules and error kinds.
package transcode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Neumenon/tjson/tjson"
)

// Codec encodes and decodes typed values.
type Codec interface {
	// Marshal serializes v.
	Marshal(v *tjson.Value) ([]byte, error)
	// Unmarshal deserializes one value from data.
	Unmarshal(data []byte) (*tjson.Value, error)
	// Name returns the codec identifier used in frame headers and flags.
	Name() string
}

// ErrUnknownCodec is returned by Lookup for an unregistered name.
var ErrUnknownCodec = errors.New("transcode: unknown codec")

// Lookup returns the codec registered under name with default decode
// options.
func Lookup(name string) (Codec, error) {
	return LookupWithOpts(name, tjson.DefaultDecodeOptions())
}

// LookupWithOpts returns the codec registered under name, decoding with
// opts.
func LookupWithOpts(name string, opts tjson.DecodeOptions) (Codec, error) {
	switch name {
	case "json":
		return JSON{Opts: opts}, nil
	case "cbor":
		return CBOR{Opts: opts}, nil
	case "msgpack":
		return MsgPack{Opts: opts}, nil
	}
	return nil, fmt.Errorf("%w %q (want one of %v)", ErrUnknownCodec, name, Names())
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	names := []string{"json", "cbor", "msgpack"}
	sort.Strings(names)
	return names
}

// Default is the codec used when none is named.
var Default Codec = JSON{}
