package transcode

import (
	"errors"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/Neumenon/tjson/tjson"
)

// Each envelope opens at most a map and a payload container, and graph
// payloads add a properties map, so four container levels per envelope
// cover every well-formed tree.
const levelsPerEnvelope = 4

// maxCBORLevels is the largest MaxNestedLevels the CBOR decoder accepts.
const maxCBORLevels = 65535

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys and shortest integers, so equal values give identical bytes.
var cborEncMode cbor.EncMode

// cborDecModes caches one decode mode per nesting limit. Every mode
// decodes maps into map[string]any, which is the tree shape
// tjson.FromTree expects.
var cborDecModes sync.Map // int -> cbor.DecMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}
	if _, err := cborDecMode(levelsPerEnvelope * tjson.DefaultMaxDepth); err != nil {
		panic("transcode: CBOR decoder initialization failed: " + err.Error())
	}
}

// cborDecMode returns the decode mode allowing levels nested containers.
// Limits above what the decoder supports are capped.
func cborDecMode(levels int) (cbor.DecMode, error) {
	levels = min(max(levels, 4), maxCBORLevels)
	if dm, ok := cborDecModes.Load(levels); ok {
		return dm.(cbor.DecMode), nil
	}
	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: levels,
	}.DecMode()
	if err != nil {
		return nil, err
	}
	actual, _ := cborDecModes.LoadOrStore(levels, dm)
	return actual.(cbor.DecMode), nil
}

// CBOR carries envelopes as CBOR maps. ByteArray payloads become CBOR
// byte strings.
type CBOR struct {
	Opts tjson.DecodeOptions
}

// Marshal encodes v as deterministic CBOR.
func (c CBOR) Marshal(v *tjson.Value) ([]byte, error) {
	tree, err := binaryTree(v, c.Opts)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(tree)
}

// Unmarshal decodes one CBOR data item.
func (c CBOR) Unmarshal(data []byte) (*tjson.Value, error) {
	dm, err := cborDecMode(containerLevels(c.Opts))
	if err != nil {
		return nil, containerErr(tjson.ErrSyntax, "cbor", err)
	}
	var tree any
	if err := dm.Unmarshal(data, &tree); err != nil {
		var nested *cbor.MaxNestedLevelError
		if errors.As(err, &nested) {
			return nil, containerErr(tjson.ErrStructuralDepthExceeded, "cbor", err)
		}
		return nil, containerErr(tjson.ErrSyntax, "cbor", err)
	}
	return tjson.FromTreeWithOpts(tree, c.Opts)
}

// Name returns "cbor".
func (CBOR) Name() string { return "cbor" }
