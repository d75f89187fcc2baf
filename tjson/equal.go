package tjson

import (
	"bytes"
	"math"
	"slices"

	"github.com/zeebo/blake3"
)

// Equal reports whether a and b are the same typed value. Floats compare
// by bit pattern, so NaN equals an identical NaN and -0 differs from 0.
// Map and property entries compare regardless of order; lists, labels
// and path members compare in order. Zoned timestamps must agree on
// both instant and offset. A nil *Value equals Null.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindNull:
		return true
	case KindBoolean:
		return a.boolVal == b.boolVal
	case KindInteger:
		return a.intVal == b.intVal
	case KindFloat:
		return math.Float64bits(a.floatVal) == math.Float64bits(b.floatVal)
	case KindString:
		return a.strVal == b.strVal
	case KindByteArray:
		return bytes.Equal(a.bytesVal, b.bytesVal)
	case KindList:
		return slices.EqualFunc(a.listVal, b.listVal, Equal)
	case KindMap:
		return propertiesEqual(a.mapVal, b.mapVal)
	case KindZonedDateTime:
		_, offA := a.timeVal.Zone()
		_, offB := b.timeVal.Zone()
		return a.timeVal.Equal(b.timeVal) && offA == offB
	case KindDateTime, KindTime, KindDate:
		return a.timeVal.Equal(b.timeVal)
	case KindDuration:
		return a.durVal == b.durVal
	case KindNode:
		return nodeEqual(a.nodeVal, b.nodeVal)
	case KindRelationship:
		return relationshipEqual(a.relVal, b.relVal)
	case KindPath:
		return slices.EqualFunc(a.pathVal.Nodes, b.pathVal.Nodes, nodeEqual) &&
			slices.EqualFunc(a.pathVal.Relationships, b.pathVal.Relationships, relationshipEqual)
	}
	return false
}

func propertiesEqual(a, b map[string]*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !Equal(va, vb) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ElementID == b.ElementID &&
		slices.Equal(a.Labels, b.Labels) &&
		propertiesEqual(a.Properties, b.Properties)
}

func relationshipEqual(a, b *Relationship) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ElementID == b.ElementID &&
		a.Type == b.Type &&
		a.StartNodeElementID == b.StartNodeElementID &&
		a.EndNodeElementID == b.EndNodeElementID &&
		propertiesEqual(a.Properties, b.Properties)
}

// Fingerprint returns the BLAKE3-256 digest of the canonical envelope
// JSON of v. Values that are Equal have equal fingerprints.
func Fingerprint(v *Value) ([32]byte, error) {
	return FingerprintWithOpts(v, DefaultEncodeOptions())
}

// FingerprintWithOpts is like Fingerprint with encode options. The
// options bound nesting only; they never change the digest.
func FingerprintWithOpts(v *Value, opts EncodeOptions) ([32]byte, error) {
	data, err := MarshalWithOpts(v, opts)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}
