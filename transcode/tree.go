package transcode

import (
	"github.com/Neumenon/tjson/tjson"
)

// binaryTree returns the envelope tree of v with every ByteArray payload
// replaced by a native byte string, which binary containers store
// without a per-byte integer. Nesting is bounded by the limit of opts.
func binaryTree(v *tjson.Value, opts tjson.DecodeOptions) (any, error) {
	tree, err := tjson.ToTreeWithOpts(v, opts.EncodeOptions())
	if err != nil {
		return nil, err
	}
	return packBytes(tree), nil
}

func packBytes(node any) any {
	switch n := node.(type) {
	case map[string]any:
		if n["$type"] == "ByteArray" {
			if items, ok := n["_value"].([]any); ok {
				b := make([]byte, len(items))
				for i, item := range items {
					b[i] = byte(item.(int64))
				}
				n["_value"] = b
				return n
			}
		}
		for k, child := range n {
			n[k] = packBytes(child)
		}
	case []any:
		for i, child := range n {
			n[i] = packBytes(child)
		}
	}
	return node
}

// containerLevels is the container nesting a binary decoder allows for
// opts.
func containerLevels(opts tjson.DecodeOptions) int {
	return levelsPerEnvelope * opts.Depth()
}

// containerErr reports a failure of a binary container decoder as a
// tjson error so callers can test every codec with the same sentinels.
func containerErr(kind error, codec string, err error) error {
	return &tjson.Error{Op: "decode", Kind: kind, Detail: codec + ": " + err.Error()}
}
