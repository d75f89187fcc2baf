package tjson

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Kind identifies a Value variant. Its String form is the wire
// discriminator carried in the "$type" field of an envelope.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindByteArray
	KindMap
	KindList
	KindZonedDateTime
	KindDateTime
	KindTime
	KindDate
	KindDuration
	KindNode
	KindRelationship
	KindPath
)

var kindNames = [...]string{
	KindNull:          "Null",
	KindBoolean:       "Boolean",
	KindInteger:       "Integer",
	KindFloat:         "Float",
	KindString:        "String",
	KindByteArray:     "ByteArray",
	KindMap:           "Map",
	KindList:          "List",
	KindZonedDateTime: "ZonedDateTime",
	KindDateTime:      "DateTime",
	KindTime:          "Time",
	KindDate:          "Date",
	KindDuration:      "Duration",
	KindNode:          "Node",
	KindRelationship:  "Relationship",
	KindPath:          "Path",
}

// discriminators maps each wire tag back to its Kind.
var discriminators = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

// String returns the wire discriminator.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a discriminator to its Kind. Matching is exact and
// case-sensitive.
func ParseKind(s string) (Kind, bool) {
	k, ok := discriminators[s]
	return k, ok
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// Value is an immutable typed value. Exactly one payload field is
// meaningful, selected by kind. Build values with the constructors
// below; the zero Value and a nil *Value both read as Null.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	bytesVal []byte
	timeVal  time.Time // Date, Time, DateTime, ZonedDateTime
	durVal   Duration

	listVal []*Value
	mapVal  map[string]*Value

	nodeVal *Node
	relVal  *Relationship
	pathVal *Path
}

// Node is a graph vertex.
type Node struct {
	ElementID  string
	Labels     []string
	Properties map[string]*Value
}

// Relationship is a graph edge. The start and end element ids may name
// nodes that are not present in the same message.
type Relationship struct {
	ElementID          string
	Type               string
	StartNodeElementID string
	EndNodeElementID   string
	Properties         map[string]*Value
}

// Path is a walk through the graph. For a connected walk,
// Relationships[i] joins Nodes[i] and Nodes[i+1].
type Path struct {
	Nodes         []*Node
	Relationships []*Relationship
}

// Connected reports whether the path is a non-empty walk in which every
// relationship joins its neighbouring nodes, in either direction.
func (p *Path) Connected() bool {
	if p == nil || len(p.Nodes) == 0 || len(p.Relationships) != len(p.Nodes)-1 {
		return false
	}
	for i, r := range p.Relationships {
		if r == nil || p.Nodes[i] == nil || p.Nodes[i+1] == nil {
			return false
		}
		a, b := p.Nodes[i].ElementID, p.Nodes[i+1].ElementID
		forward := r.StartNodeElementID == a && r.EndNodeElementID == b
		backward := r.StartNodeElementID == b && r.EndNodeElementID == a
		if !forward && !backward {
			return false
		}
	}
	return true
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ElementID:  n.ElementID,
		Labels:     slices.Clone(n.Labels),
		Properties: maps.Clone(n.Properties),
	}
}

func (r *Relationship) clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	c.Properties = maps.Clone(r.Properties)
	return &c
}

func (p *Path) clone() *Path {
	c := &Path{
		Nodes:         make([]*Node, len(p.Nodes)),
		Relationships: make([]*Relationship, len(p.Relationships)),
	}
	for i, n := range p.Nodes {
		c.Nodes[i] = n.clone()
	}
	for i, r := range p.Relationships {
		c.Relationships[i] = r.clone()
	}
	return c
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBoolean, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInteger, intVal: v}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{kind: KindFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Bytes creates a byte array value. The slice is copied.
func Bytes(v []byte) *Value {
	return &Value{kind: KindByteArray, bytesVal: bytes.Clone(v)}
}

// List creates a list value.
func List(values ...*Value) *Value {
	return &Value{kind: KindList, listVal: slices.Clone(values)}
}

// Map creates a map value. The map is copied.
func Map(entries map[string]*Value) *Value {
	m := maps.Clone(entries)
	if m == nil {
		m = map[string]*Value{}
	}
	return &Value{kind: KindMap, mapVal: m}
}

// ZonedDateTimeOf creates a timestamp with a fixed UTC offset. Sub-second
// precision is dropped and the offset is truncated to whole minutes,
// keeping the wall clock. A time whose offset lies beyond ±23:59 is
// taken in UTC instead, keeping the instant.
func ZonedDateTimeOf(t time.Time) *Value {
	_, off := t.Zone()
	off -= off % 60
	if off > maxOffset || off < -maxOffset {
		t, off = t.UTC(), 0
	}
	return &Value{
		kind:    KindZonedDateTime,
		timeVal: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.FixedZone("", off)),
	}
}

// DateTimeOf creates a timestamp without offset from the wall clock of t.
func DateTimeOf(t time.Time) *Value {
	return &Value{
		kind:    KindDateTime,
		timeVal: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC),
	}
}

// TimeOf creates a time-of-day value from the clock of t.
func TimeOf(t time.Time) *Value {
	return &Value{
		kind:    KindTime,
		timeVal: time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC),
	}
}

// DateOf creates a calendar date value from the date of t.
func DateOf(t time.Time) *Value {
	return &Value{
		kind:    KindDate,
		timeVal: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// DurationOf creates a duration value.
func DurationOf(d Duration) *Value {
	return &Value{kind: KindDuration, durVal: d.normalize()}
}

// NodeOf creates a node value. Labels and properties are copied.
func NodeOf(n Node) *Value {
	return &Value{kind: KindNode, nodeVal: n.clone()}
}

// RelationshipOf creates a relationship value. Properties are copied.
func RelationshipOf(r Relationship) *Value {
	return &Value{kind: KindRelationship, relVal: r.clone()}
}

// PathOf creates a path value. Nodes and relationships are copied.
func PathOf(p Path) *Value {
	return &Value{kind: KindPath, pathVal: p.clone()}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value variant.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull returns true for a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

func (v *Value) expect(k Kind) error {
	if got := v.Kind(); got != k {
		return fmt.Errorf("tjson: expected %s, got %s", k, got)
	}
	return nil
}

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(KindBoolean); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt returns the integer payload.
func (v *Value) AsInt() (int64, error) {
	if err := v.expect(KindInteger); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsFloat returns the float payload.
func (v *Value) AsFloat() (float64, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsStr returns the string payload.
func (v *Value) AsStr() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsBytes returns a copy of the byte array payload.
func (v *Value) AsBytes() ([]byte, error) {
	if err := v.expect(KindByteArray); err != nil {
		return nil, err
	}
	return bytes.Clone(v.bytesVal), nil
}

// AsList returns the list elements. The returned slice is a copy; the
// elements themselves are immutable.
func (v *Value) AsList() ([]*Value, error) {
	if err := v.expect(KindList); err != nil {
		return nil, err
	}
	return slices.Clone(v.listVal), nil
}

// AsMap returns a copy of the map entries.
func (v *Value) AsMap() (map[string]*Value, error) {
	if err := v.expect(KindMap); err != nil {
		return nil, err
	}
	return maps.Clone(v.mapVal), nil
}

// AsTime returns the payload of any of the four instant-like temporal
// kinds (ZonedDateTime, DateTime, Time, Date).
func (v *Value) AsTime() (time.Time, error) {
	switch v.Kind() {
	case KindZonedDateTime, KindDateTime, KindTime, KindDate:
		return v.timeVal, nil
	}
	return time.Time{}, fmt.Errorf("tjson: expected temporal value, got %s", v.Kind())
}

// AsDuration returns the duration payload.
func (v *Value) AsDuration() (Duration, error) {
	if err := v.expect(KindDuration); err != nil {
		return Duration{}, err
	}
	return v.durVal, nil
}

// AsNode returns a copy of the node payload.
func (v *Value) AsNode() (*Node, error) {
	if err := v.expect(KindNode); err != nil {
		return nil, err
	}
	return v.nodeVal.clone(), nil
}

// AsRelationship returns a copy of the relationship payload.
func (v *Value) AsRelationship() (*Relationship, error) {
	if err := v.expect(KindRelationship); err != nil {
		return nil, err
	}
	return v.relVal.clone(), nil
}

// AsPath returns a copy of the path payload.
func (v *Value) AsPath() (*Path, error) {
	if err := v.expect(KindPath); err != nil {
		return nil, err
	}
	return v.pathVal.clone(), nil
}

// Len returns the number of elements of a list or entries of a map.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindList:
		return len(v.listVal)
	case KindMap:
		return len(v.mapVal)
	default:
		return 0
	}
}

// Get returns a map entry, or nil when absent or v is not a map.
func (v *Value) Get(key string) *Value {
	if v.Kind() != KindMap {
		return nil
	}
	return v.mapVal[key]
}

// Index returns the i-th element of a list.
func (v *Value) Index(i int) (*Value, error) {
	if err := v.expect(KindList); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(v.listVal) {
		return nil, fmt.Errorf("tjson: index %d out of bounds (len=%d)", i, len(v.listVal))
	}
	return v.listVal[i], nil
}

// String renders the value as its canonical envelope JSON. Encoding
// errors (only possible for over-deep trees) are rendered inline.
func (v *Value) String() string {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.Kind(), err)
	}
	return string(data)
}
