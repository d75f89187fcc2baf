package transcode

import "github.com/Neumenon/tjson/tjson"

// JSON is the canonical envelope text form.
type JSON struct {
	Opts tjson.DecodeOptions
}

// Marshal encodes v as compact envelope JSON.
func (c JSON) Marshal(v *tjson.Value) ([]byte, error) {
	return tjson.MarshalWithOpts(v, c.Opts.EncodeOptions())
}

// Unmarshal decodes one envelope from JSON text.
func (c JSON) Unmarshal(data []byte) (*tjson.Value, error) {
	return tjson.UnmarshalWithOpts(data, c.Opts)
}

// Name returns "json".
func (JSON) Name() string { return "json" }
