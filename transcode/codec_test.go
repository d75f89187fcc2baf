package transcode

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Neumenon/tjson/tjson"
)

// sample returns one value of every kind, nested inside a map.
func sample() *tjson.Value {
	when := time.Date(2024, 2, 29, 12, 30, 0, 0, time.FixedZone("", -5*3600))
	alice := tjson.Node{ElementID: "n:1", Labels: []string{"Person"}, Properties: map[string]*tjson.Value{"name": tjson.Str("Alice")}}
	bob := tjson.Node{ElementID: "n:2", Labels: []string{"Person"}, Properties: map[string]*tjson.Value{}}
	knows := tjson.Relationship{
		ElementID: "r:1", Type: "KNOWS", StartNodeElementID: "n:1", EndNodeElementID: "n:2",
		Properties: map[string]*tjson.Value{"since": tjson.Int(2001)},
	}
	return tjson.Map(map[string]*tjson.Value{
		"null":     tjson.Null(),
		"bool":     tjson.Bool(true),
		"int":      tjson.Int(math.MinInt64),
		"bigint":   tjson.Int(math.MaxInt64),
		"float":    tjson.Float(0.1),
		"nan":      tjson.Float(math.NaN()),
		"string":   tjson.Str("héllo <world>"),
		"bytes":    tjson.Bytes([]byte{0, 1, 127, 128, 255}),
		"empty":    tjson.Bytes(nil),
		"list":     tjson.List(tjson.Int(1), tjson.List(), tjson.Str("x")),
		"zoned":    tjson.ZonedDateTimeOf(when),
		"datetime": tjson.DateTimeOf(when),
		"time":     tjson.TimeOf(when),
		"date":     tjson.DateOf(when),
		"duration": tjson.DurationOf(tjson.Duration{Months: 14, Days: -3, Seconds: 3661, Nanos: 5e8}),
		"node":     tjson.NodeOf(alice),
		"rel":      tjson.RelationshipOf(knows),
		"path": tjson.PathOf(tjson.Path{
			Nodes:         []*tjson.Node{&alice, &bob},
			Relationships: []*tjson.Relationship{&knows},
		}),
	})
}

func codecs() []Codec {
	return []Codec{JSON{}, CBOR{}, MsgPack{}}
}

// ============================================================
// Round trips
// ============================================================

func TestCodecs_RoundTripEveryKind(t *testing.T) {
	v := sample()
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(v)
			require.NoError(t, err)

			back, err := c.Unmarshal(data)
			require.NoError(t, err)
			assert.True(t, tjson.Equal(v, back), "decoded: %s", back)
		})
	}
}

func TestCodecs_Deterministic(t *testing.T) {
	for _, c := range codecs() {
		t.Run(c.Name(), func(t *testing.T) {
			a, err := c.Marshal(sample())
			require.NoError(t, err)
			b, err := c.Marshal(sample())
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestCodecs_ErrorKindsShared(t *testing.T) {
	tree := map[string]any{"$type": "Integer", "_value": "not-a-number"}
	cborData, err := cbor.Marshal(tree)
	require.NoError(t, err)
	msgpackData, err := msgpack.Marshal(tree)
	require.NoError(t, err)

	inputs := map[string][]byte{
		"json":    []byte(`{"$type":"Integer","_value":"not-a-number"}`),
		"cbor":    cborData,
		"msgpack": msgpackData,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)
			_, err = c.Unmarshal(data)
			assert.ErrorIs(t, err, tjson.ErrInvalidIntegerLiteral)
		})
	}
}

func TestBinary_BytesAsByteString(t *testing.T) {
	v := tjson.Bytes([]byte{1, 2, 3})

	data, err := CBOR{}.Marshal(v)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, cbor.Unmarshal(data, &tree))
	assert.Equal(t, []byte{1, 2, 3}, tree["_value"])

	data, err = MsgPack{}.Marshal(v)
	require.NoError(t, err)
	tree = nil
	require.NoError(t, msgpack.Unmarshal(data, &tree))
	assert.Equal(t, []byte{1, 2, 3}, tree["_value"])
}

func TestBinary_SmallerThanJSON(t *testing.T) {
	v := tjson.Bytes(bytes.Repeat([]byte{200}, 1024))
	j, err := JSON{}.Marshal(v)
	require.NoError(t, err)
	for _, c := range []Codec{CBOR{}, MsgPack{}} {
		data, err := c.Marshal(v)
		require.NoError(t, err)
		assert.Less(t, len(data), len(j)/2, c.Name())
	}
}

// ============================================================
// Malformed input
// ============================================================

func TestBinary_Garbage(t *testing.T) {
	tests := []struct {
		codec Codec
		data  []byte
	}{
		{CBOR{}, []byte{0xff, 0x00}},
		{CBOR{}, []byte{}},
		{MsgPack{}, []byte{0xc1}},
		{MsgPack{}, []byte{}},
		{MsgPack{}, []byte{0x81}}, // map of one pair, truncated
	}
	for _, tt := range tests {
		t.Run(tt.codec.Name(), func(t *testing.T) {
			_, err := tt.codec.Unmarshal(tt.data)
			assert.ErrorIs(t, err, tjson.ErrSyntax)
		})
	}
}

func TestBinary_TrailingData(t *testing.T) {
	for _, c := range []Codec{CBOR{}, MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(tjson.Int(1))
			require.NoError(t, err)
			_, err = c.Unmarshal(append(data, 0x01))
			assert.ErrorIs(t, err, tjson.ErrSyntax)
		})
	}
}

// deepArrays returns a container nested depth times around an empty
// array: 0x91 is a one-element array in MessagePack, 0x81 in CBOR.
func deepArrays(open byte, empty byte, depth int) []byte {
	return append(bytes.Repeat([]byte{open}, depth), empty)
}

func TestBinary_HostileNesting(t *testing.T) {
	depth := 100000
	_, err := MsgPack{}.Unmarshal(deepArrays(0x91, 0x90, depth))
	assert.ErrorIs(t, err, tjson.ErrStructuralDepthExceeded)

	_, err = CBOR{}.Unmarshal(deepArrays(0x81, 0x80, depth))
	assert.ErrorIs(t, err, tjson.ErrStructuralDepthExceeded)
}

func TestBinary_EnvelopeDepthOption(t *testing.T) {
	v := tjson.Int(1)
	for i := 0; i < 10; i++ {
		v = tjson.List(v)
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			data, err := lookup(t, name, tjson.DecodeOptions{}).Marshal(v)
			require.NoError(t, err)

			limited := lookup(t, name, tjson.DecodeOptions{MaxDepth: 5})
			_, err = limited.Unmarshal(data)
			assert.ErrorIs(t, err, tjson.ErrStructuralDepthExceeded)
			_, err = limited.Marshal(v)
			assert.ErrorIs(t, err, tjson.ErrStructuralDepthExceeded)
		})
	}
}

func TestCodecs_RaisedDepthRoundTrip(t *testing.T) {
	v := tjson.Int(1)
	for i := 0; i < 600; i++ {
		v = tjson.List(v)
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			_, err := lookup(t, name, tjson.DecodeOptions{}).Marshal(v)
			require.ErrorIs(t, err, tjson.ErrStructuralDepthExceeded)

			c := lookup(t, name, tjson.DecodeOptions{MaxDepth: 1000})
			data, err := c.Marshal(v)
			require.NoError(t, err)
			got, err := c.Unmarshal(data)
			require.NoError(t, err)
			assert.True(t, tjson.Equal(v, got))
		})
	}
}

func lookup(t *testing.T, name string, opts tjson.DecodeOptions) Codec {
	t.Helper()
	c, err := LookupWithOpts(name, opts)
	require.NoError(t, err)
	return c
}

// ============================================================
// Registry
// ============================================================

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		c, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	_, err := Lookup("xml")
	require.ErrorIs(t, err, ErrUnknownCodec)
	assert.True(t, strings.Contains(err.Error(), `"xml"`))
	assert.Equal(t, []string{"cbor", "json", "msgpack"}, Names())
	assert.Equal(t, "json", Default.Name())
}
