package tjson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ============================================================
// Native projection
// ============================================================

// NativeNode is the plain-Go form of a Node.
type NativeNode struct {
	ElementID  string         `json:"element_id" yaml:"element_id"`
	Labels     []string       `json:"labels" yaml:"labels"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

// NativeRelationship is the plain-Go form of a Relationship.
type NativeRelationship struct {
	ElementID          string         `json:"element_id" yaml:"element_id"`
	Type               string         `json:"type" yaml:"type"`
	StartNodeElementID string         `json:"start_node_element_id" yaml:"start_node_element_id"`
	EndNodeElementID   string         `json:"end_node_element_id" yaml:"end_node_element_id"`
	Properties         map[string]any `json:"properties" yaml:"properties"`
}

// NativePath is the plain-Go form of a Path.
type NativePath struct {
	Nodes         []NativeNode         `json:"nodes" yaml:"nodes"`
	Relationships []NativeRelationship `json:"relationships" yaml:"relationships"`
}

// ToNative converts v to plain Go values, dropping the envelope:
//
//	Null          nil
//	Boolean       bool
//	Integer       int64
//	Float         float64
//	String        string
//	ByteArray     []byte
//	Map           map[string]any
//	List          []any
//	temporal      time.Time (Duration: Duration)
//	Node          NativeNode
//	Relationship  NativeRelationship
//	Path          NativePath
//
// The projection is lossy: Date, Time and DateTime all become time.Time
// and cannot be told apart afterwards.
func ToNative(v *Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBoolean:
		return v.boolVal
	case KindInteger:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.strVal
	case KindByteArray:
		b, _ := v.AsBytes()
		return b
	case KindMap:
		return nativeProperties(v.mapVal)
	case KindList:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = ToNative(e)
		}
		return out
	case KindZonedDateTime, KindDateTime, KindTime, KindDate:
		return v.timeVal
	case KindDuration:
		return v.durVal
	case KindNode:
		return nativeNode(v.nodeVal)
	case KindRelationship:
		return nativeRelationship(v.relVal)
	case KindPath:
		p := NativePath{
			Nodes:         make([]NativeNode, len(v.pathVal.Nodes)),
			Relationships: make([]NativeRelationship, len(v.pathVal.Relationships)),
		}
		for i, n := range v.pathVal.Nodes {
			p.Nodes[i] = nativeNode(n)
		}
		for i, r := range v.pathVal.Relationships {
			p.Relationships[i] = nativeRelationship(r)
		}
		return p
	}
	return nil
}

func nativeProperties(m map[string]*Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = ToNative(e)
	}
	return out
}

func nativeNode(n *Node) NativeNode {
	if n == nil {
		return NativeNode{Labels: []string{}, Properties: map[string]any{}}
	}
	return NativeNode{
		ElementID:  n.ElementID,
		Labels:     append([]string{}, n.Labels...),
		Properties: nativeProperties(n.Properties),
	}
}

func nativeRelationship(r *Relationship) NativeRelationship {
	if r == nil {
		return NativeRelationship{Properties: map[string]any{}}
	}
	return NativeRelationship{
		ElementID:          r.ElementID,
		Type:               r.Type,
		StartNodeElementID: r.StartNodeElementID,
		EndNodeElementID:   r.EndNodeElementID,
		Properties:         nativeProperties(r.Properties),
	}
}

// FromNative wraps plain Go values in envelopes, the inverse of
// ToNative where the mapping is unambiguous. Whole json.Number and Go
// integer types become Integer; float32/float64 and fractional
// json.Number become Float; time.Time becomes ZonedDateTime. Nesting is
// limited to DefaultMaxDepth so cyclic maps fail instead of recursing.
func FromNative(x any) (*Value, error) {
	return FromNativeWithOpts(x, DefaultEncodeOptions())
}

// FromNativeWithOpts is like FromNative with the nesting limit of opts.
func FromNativeWithOpts(x any, opts EncodeOptions) (*Value, error) {
	f := &nativeReader{maxDepth: opts.maxDepth()}
	return f.value(x, 0)
}

type nativeReader struct {
	maxDepth int
}

func (f *nativeReader) value(x any, depth int) (*Value, error) {
	if depth >= f.maxDepth {
		return nil, &Error{Op: "encode", Kind: ErrStructuralDepthExceeded,
			Detail: fmt.Sprintf("more than %d nested values", f.maxDepth)}
	}
	switch n := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		return n, nil
	case bool:
		return Bool(n), nil
	case string:
		return Str(n), nil
	case float64:
		return Float(n), nil
	case float32:
		return Float(float64(n)), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return Int(i), nil
		}
		fl, err := parseFloatLiteral(string(n))
		if err != nil {
			return nil, &Error{Op: "encode", Kind: ErrInvalidFloatLiteral, Detail: string(n)}
		}
		return Float(fl), nil
	case []byte:
		return Bytes(n), nil
	case time.Time:
		return ZonedDateTimeOf(n), nil
	case Duration:
		return DurationOf(n), nil
	case []any:
		values := make([]*Value, len(n))
		for i, e := range n {
			v, err := f.value(e, depth+1)
			if err != nil {
				return nil, at(err, strconv.Itoa(i))
			}
			values[i] = v
		}
		return List(values...), nil
	case map[string]any:
		props, err := f.properties(n, depth)
		if err != nil {
			return nil, err
		}
		return Map(props), nil
	case NativeNode:
		node, err := f.node(n, depth)
		if err != nil {
			return nil, err
		}
		return NodeOf(*node), nil
	case NativeRelationship:
		rel, err := f.relationship(n, depth)
		if err != nil {
			return nil, err
		}
		return RelationshipOf(*rel), nil
	case NativePath:
		return f.path(n, depth)
	}
	if i, ok := toInt64(x); ok {
		return Int(i), nil
	}
	return nil, &Error{Op: "encode", Kind: ErrUnexpectedPayload, Detail: fmt.Sprintf("unsupported native type %T", x)}
}

func (f *nativeReader) node(n NativeNode, depth int) (*Node, error) {
	props, err := f.properties(n.Properties, depth)
	if err != nil {
		return nil, at(err, "_properties")
	}
	return &Node{ElementID: n.ElementID, Labels: n.Labels, Properties: props}, nil
}

func (f *nativeReader) relationship(r NativeRelationship, depth int) (*Relationship, error) {
	props, err := f.properties(r.Properties, depth)
	if err != nil {
		return nil, at(err, "_properties")
	}
	return &Relationship{
		ElementID:          r.ElementID,
		Type:               r.Type,
		StartNodeElementID: r.StartNodeElementID,
		EndNodeElementID:   r.EndNodeElementID,
		Properties:         props,
	}, nil
}

// path rebuilds a Path. Error locations follow the alternating wire
// layout: node i sits at 2i, relationship i at 2i+1.
func (f *nativeReader) path(p NativePath, depth int) (*Value, error) {
	out := Path{
		Nodes:         make([]*Node, len(p.Nodes)),
		Relationships: make([]*Relationship, len(p.Relationships)),
	}
	for i, n := range p.Nodes {
		node, err := f.node(n, depth+1)
		if err != nil {
			return nil, at(at(err, fieldValue), strconv.Itoa(2*i))
		}
		out.Nodes[i] = node
	}
	for i, r := range p.Relationships {
		rel, err := f.relationship(r, depth+1)
		if err != nil {
			return nil, at(at(err, fieldValue), strconv.Itoa(2*i+1))
		}
		out.Relationships[i] = rel
	}
	return PathOf(out), nil
}

func (f *nativeReader) properties(m map[string]any, depth int) (map[string]*Value, error) {
	out := make(map[string]*Value, len(m))
	for k, e := range m {
		v, err := f.value(e, depth+1)
		if err != nil {
			return nil, at(err, pointerEscape(k))
		}
		out[k] = v
	}
	return out, nil
}
