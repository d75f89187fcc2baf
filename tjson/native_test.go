package tjson

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNative(t *testing.T) {
	when := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		v    *Value
		want any
	}{
		{"null", Null(), nil},
		{"bool", Bool(true), true},
		{"int", Int(-4), int64(-4)},
		{"float", Float(2.5), 2.5},
		{"string", Str("s"), "s"},
		{"bytes", Bytes([]byte{1}), []byte{1}},
		{"list", List(Int(1), Str("x")), []any{int64(1), "x"}},
		{"map", Map(map[string]*Value{"k": Bool(false)}), map[string]any{"k": false}},
		{"date", DateOf(when), when},
		{"duration", DurationOf(Duration{Months: 1}), Duration{Months: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToNative(tt.v))
		})
	}
}

func TestToNative_Graph(t *testing.T) {
	v, err := Unmarshal([]byte(nodeJSON))
	require.NoError(t, err)

	n, ok := ToNative(v).(NativeNode)
	require.True(t, ok)
	assert.Equal(t, "4:a:0", n.ElementID)
	assert.Equal(t, []string{"Person", "Actor"}, n.Labels)
	assert.Equal(t, map[string]any{"name": "Keanu", "born": int64(1964)}, n.Properties)

	path, err := Unmarshal(pathJSON(nodeUnit("a"), relUnit("r", "a", "b"), nodeUnit("b")))
	require.NoError(t, err)
	p, ok := ToNative(path).(NativePath)
	require.True(t, ok)
	require.Len(t, p.Nodes, 2)
	require.Len(t, p.Relationships, 1)
	assert.Equal(t, "KNOWS", p.Relationships[0].Type)
	assert.Equal(t, map[string]any{}, p.Relationships[0].Properties)
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *Value
	}{
		{"nil", nil, Null()},
		{"bool", false, Bool(false)},
		{"int", 7, Int(7)},
		{"uint8", uint8(255), Int(255)},
		{"float", 2.0, Float(2)},
		{"number int", json.Number("-12"), Int(-12)},
		{"number float", json.Number("1.25"), Float(1.25)},
		{"string", "s", Str("s")},
		{"bytes", []byte{0, 1}, Bytes([]byte{0, 1})},
		{"duration", Duration{Days: 1}, DurationOf(Duration{Days: 1})},
		{"list", []any{1, "a"}, List(Int(1), Str("a"))},
		{"map", map[string]any{"k": nil}, Map(map[string]*Value{"k": Null()})},
		{"node", NativeNode{ElementID: "n", Labels: []string{"L"}, Properties: map[string]any{"p": 1}},
			NodeOf(Node{ElementID: "n", Labels: []string{"L"}, Properties: map[string]*Value{"p": Int(1)}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromNative(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %s", got)
		})
	}
}

func TestFromNative_ToNativeRoundTrip(t *testing.T) {
	in := map[string]any{
		"name": "Keanu",
		"born": int64(1964),
		"tags": []any{"a", "b"},
		"raw":  []byte{1, 2, 3},
	}
	v, err := FromNative(in)
	require.NoError(t, err)
	assert.Equal(t, in, ToNative(v))
}

func TestFromNative_Errors(t *testing.T) {
	_, err := FromNative(map[string]any{"a/b": []any{struct{}{}}})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, err, ErrUnexpectedPayload)
	assert.Equal(t, "/a~1b/0", e.Path)

	_, err = FromNative(uint64(1 << 63))
	assert.ErrorIs(t, err, ErrUnexpectedPayload)

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = FromNative(cyclic)
	assert.ErrorIs(t, err, ErrStructuralDepthExceeded)
}

func TestFromNative_Graph(t *testing.T) {
	for _, input := range [][]byte{
		[]byte(nodeJSON),
		pathJSON(nodeUnit("a"), relUnit("r", "a", "b"), nodeUnit("b")),
		pathJSON(nodeUnit("a")),
	} {
		v, err := Unmarshal(input)
		require.NoError(t, err)

		back, err := FromNative(ToNative(v))
		require.NoError(t, err)
		assert.True(t, Equal(v, back), "got %s", back)
	}
}

func TestFromNative_PathErrorLocation(t *testing.T) {
	p := NativePath{
		Nodes: []NativeNode{{ElementID: "a"}, {ElementID: "b"}},
		Relationships: []NativeRelationship{{
			ElementID: "r", Type: "KNOWS", StartNodeElementID: "a", EndNodeElementID: "b",
			Properties: map[string]any{"bad": struct{}{}},
		}},
	}
	_, err := FromNative(p)
	require.ErrorIs(t, err, ErrUnexpectedPayload)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "/1/_value/_properties/bad", e.Path)
}

func TestFromNativeWithOpts_Depth(t *testing.T) {
	var deep any = "leaf"
	for i := 0; i < 600; i++ {
		deep = []any{deep}
	}
	_, err := FromNative(deep)
	require.ErrorIs(t, err, ErrStructuralDepthExceeded)

	v, err := FromNativeWithOpts(deep, EncodeOptions{MaxDepth: 1000})
	require.NoError(t, err)
	assert.Equal(t, KindList, v.Kind())
}
