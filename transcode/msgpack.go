package transcode

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/Neumenon/tjson/tjson"
)

// MsgPack carries envelopes as MessagePack maps. ByteArray payloads
// become bin values.
type MsgPack struct {
	Opts tjson.DecodeOptions
}

// Marshal encodes v as MessagePack with sorted map keys and compact
// integers.
func (c MsgPack) Marshal(v *tjson.Value) ([]byte, error) {
	tree, err := binaryTree(v, c.Opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("transcode: msgpack encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one MessagePack value. The nesting of data is
// checked before the tree is built.
func (c MsgPack) Unmarshal(data []byte) (*tjson.Value, error) {
	if err := msgpackDepth(data, containerLevels(c.Opts)); err != nil {
		return nil, err
	}
	// bytes.Reader is an io.ByteScanner, so the decoder reads from it
	// directly and r.Len() is exactly what is left.
	r := bytes.NewReader(data)
	tree, err := msgpack.NewDecoder(r).DecodeInterface()
	if err != nil {
		return nil, containerErr(tjson.ErrSyntax, "msgpack", err)
	}
	if r.Len() > 0 {
		return nil, containerErr(tjson.ErrSyntax, "msgpack", fmt.Errorf("%d bytes of trailing data", r.Len()))
	}
	return tjson.FromTreeWithOpts(tree, c.Opts)
}

// Name returns "msgpack".
func (MsgPack) Name() string { return "msgpack" }

// msgpackDepth walks the container structure of data without
// materializing it and fails when arrays and maps nest deeper than limit.
func msgpackDepth(data []byte, limit int) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	pending := []int{1} // items left to read at each open level
	for len(pending) > 0 {
		top := len(pending) - 1
		if pending[top] == 0 {
			pending = pending[:top]
			continue
		}
		pending[top]--

		c, err := dec.PeekCode()
		if err != nil {
			return containerErr(tjson.ErrSyntax, "msgpack", err)
		}
		n := 0
		switch {
		case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
			n, err = dec.DecodeArrayLen()
		case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
			n, err = dec.DecodeMapLen()
			n *= 2
		default:
			err = dec.Skip()
		}
		if err != nil {
			return containerErr(tjson.ErrSyntax, "msgpack", err)
		}
		if n > 0 {
			if len(pending) >= limit {
				return containerErr(tjson.ErrStructuralDepthExceeded, "msgpack",
					fmt.Errorf("more than %d nested containers", limit))
			}
			pending = append(pending, n)
		}
	}
	return nil
}
