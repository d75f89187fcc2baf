package tjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodeJSON = `{
	"$type": "Node",
	"_value": {
		"_element_id": "4:a:0",
		"_labels": ["Person", "Actor"],
		"_properties": {
			"name": {"$type": "String", "_value": "Keanu"},
			"born": {"$type": "Integer", "_value": "1964"}
		}
	}
}`

const relationshipJSON = `{
	"$type": "Relationship",
	"_value": {
		"_element_id": "5:a:0",
		"_type": "ACTED_IN",
		"_start_node_element_id": "4:a:0",
		"_end_node_element_id": "4:a:1",
		"_properties": {
			"roles": {"$type": "List", "_value": [{"$type": "String", "_value": "Neo"}]}
		}
	}
}`

func nodeUnit(id string) string {
	return `{"$type":"Node","_value":{"_element_id":"` + id + `","_labels":[],"_properties":{}}}`
}

func relUnit(id, start, end string) string {
	return `{"$type":"Relationship","_value":{"_element_id":"` + id + `","_type":"KNOWS",` +
		`"_start_node_element_id":"` + start + `","_end_node_element_id":"` + end + `","_properties":{}}}`
}

func pathJSON(units ...string) []byte {
	return []byte(`{"$type":"Path","_value":[` + strings.Join(units, ",") + `]}`)
}

// ============================================================
// Node
// ============================================================

func TestNode_Decode(t *testing.T) {
	v, err := Unmarshal([]byte(nodeJSON))
	require.NoError(t, err)

	n, err := v.AsNode()
	require.NoError(t, err)
	assert.Equal(t, "4:a:0", n.ElementID)
	assert.Equal(t, []string{"Person", "Actor"}, n.Labels)
	require.Len(t, n.Properties, 2)

	name, err := n.Properties["name"].AsStr()
	require.NoError(t, err)
	assert.Equal(t, "Keanu", name)
}

func TestNode_RoundTripKeepsLabelOrder(t *testing.T) {
	v := NodeOf(Node{
		ElementID:  "n1",
		Labels:     []string{"Zebra", "Apple"},
		Properties: map[string]*Value{"missing": Null()},
	})
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"$type":"Node","_value":{"_element_id":"n1","_labels":["Zebra","Apple"],"_properties":{"missing":{"$type":"Null","_value":null}}}}`,
		string(out))

	back, err := Unmarshal(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestNode_EmptyLabelsEncodeAsArray(t *testing.T) {
	out, err := Marshal(NodeOf(Node{ElementID: "n"}))
	require.NoError(t, err)
	assert.Equal(t, `{"$type":"Node","_value":{"_element_id":"n","_labels":[],"_properties":{}}}`, string(out))
}

func TestNode_AccessorReturnsCopy(t *testing.T) {
	v := NodeOf(Node{ElementID: "n", Labels: []string{"A"}})
	n, err := v.AsNode()
	require.NoError(t, err)
	n.Labels[0] = "B"

	again, _ := v.AsNode()
	assert.Equal(t, []string{"A"}, again.Labels)
}

func TestNode_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
		field string
		path  string
	}{
		{
			name:  "missing element id",
			input: `{"$type":"Node","_value":{"_labels":[],"_properties":{}}}`,
			kind:  ErrMissingField, field: "_element_id", path: "/_value",
		},
		{
			name:  "missing labels",
			input: `{"$type":"Node","_value":{"_element_id":"n","_properties":{}}}`,
			kind:  ErrMissingField, field: "_labels", path: "/_value",
		},
		{
			name:  "missing properties",
			input: `{"$type":"Node","_value":{"_element_id":"n","_labels":[]}}`,
			kind:  ErrMissingField, field: "_properties", path: "/_value",
		},
		{
			name:  "label not string",
			input: `{"$type":"Node","_value":{"_element_id":"n","_labels":["A",1],"_properties":{}}}`,
			kind:  ErrUnexpectedPayload, path: "/_value/_labels/1",
		},
		{
			name:  "element id not string",
			input: `{"$type":"Node","_value":{"_element_id":4,"_labels":[],"_properties":{}}}`,
			kind:  ErrUnexpectedPayload, path: "/_value/_element_id",
		},
		{
			name:  "bad property",
			input: `{"$type":"Node","_value":{"_element_id":"n","_labels":[],"_properties":{"p":{"$type":"Float","_value":"x"}}}}`,
			kind:  ErrInvalidFloatLiteral, path: "/_value/_properties/p/_value",
		},
		{
			name:  "payload not object",
			input: `{"$type":"Node","_value":"n"}`,
			kind:  ErrUnexpectedPayload, path: "/_value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			require.ErrorIs(t, err, tt.kind)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field, e.Field)
			assert.Equal(t, tt.path, e.Path)
		})
	}
}

// ============================================================
// Relationship
// ============================================================

func TestRelationship_Decode(t *testing.T) {
	v, err := Unmarshal([]byte(relationshipJSON))
	require.NoError(t, err)

	r, err := v.AsRelationship()
	require.NoError(t, err)
	assert.Equal(t, "5:a:0", r.ElementID)
	assert.Equal(t, "ACTED_IN", r.Type)
	assert.Equal(t, "4:a:0", r.StartNodeElementID)
	assert.Equal(t, "4:a:1", r.EndNodeElementID)
	assert.Equal(t, 1, r.Properties["roles"].Len())
}

func TestRelationship_RoundTrip(t *testing.T) {
	v := RelationshipOf(Relationship{
		ElementID:          "r1",
		Type:               "KNOWS",
		StartNodeElementID: "a",
		EndNodeElementID:   "b",
		Properties:         map[string]*Value{"since": Int(1999)},
	})
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"$type":"Relationship","_value":{"_element_id":"r1","_end_node_element_id":"b","_properties":{"since":{"$type":"Integer","_value":"1999"}},"_start_node_element_id":"a","_type":"KNOWS"}}`,
		string(out))

	back, err := Unmarshal(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestRelationship_MissingFields(t *testing.T) {
	full := map[string]any{
		"_element_id":            "r",
		"_type":                  "T",
		"_start_node_element_id": "a",
		"_end_node_element_id":   "b",
		"_properties":            map[string]any{},
	}
	for field := range full {
		t.Run(field, func(t *testing.T) {
			payload := make(map[string]any, len(full))
			for k, v := range full {
				if k != field {
					payload[k] = v
				}
			}
			_, err := FromTree(map[string]any{"$type": "Relationship", "_value": payload})
			require.ErrorIs(t, err, ErrMissingField)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, field, e.Field)
		})
	}
}

// ============================================================
// Path
// ============================================================

func TestPath_Decode(t *testing.T) {
	input := pathJSON(
		nodeUnit("a"), relUnit("r1", "a", "b"),
		nodeUnit("b"), relUnit("r2", "c", "b"),
		nodeUnit("c"),
	)
	v, err := Unmarshal(input)
	require.NoError(t, err)

	p, err := v.AsPath()
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)
	require.Len(t, p.Relationships, 2)
	assert.Equal(t, "a", p.Nodes[0].ElementID)
	assert.Equal(t, "c", p.Nodes[2].ElementID)
	assert.Equal(t, "r2", p.Relationships[1].ElementID)
	assert.True(t, p.Connected())
}

func TestPath_RoundTrip(t *testing.T) {
	input := pathJSON(nodeUnit("a"), relUnit("r1", "a", "b"), nodeUnit("b"))
	v, err := Unmarshal(input)
	require.NoError(t, err)

	out, err := Marshal(v)
	require.NoError(t, err)
	back, err := Unmarshal(out)
	require.NoError(t, err)
	assert.True(t, Equal(v, back))

	// Compact text of the input, in the encoder's key order.
	want := `{"$type":"Path","_value":[` +
		`{"$type":"Node","_value":{"_element_id":"a","_labels":[],"_properties":{}}},` +
		`{"$type":"Relationship","_value":{"_element_id":"r1","_end_node_element_id":"b","_properties":{},"_start_node_element_id":"a","_type":"KNOWS"}},` +
		`{"$type":"Node","_value":{"_element_id":"b","_labels":[],"_properties":{}}}]}`
	assert.Equal(t, want, string(out))
}

func TestPath_NonAlternatingInputIsRegrouped(t *testing.T) {
	input := pathJSON(nodeUnit("a"), nodeUnit("b"), relUnit("r1", "a", "b"), relUnit("r2", "b", "c"))
	v, err := Unmarshal(input)
	require.NoError(t, err)

	p, err := v.AsPath()
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 2)
	assert.Len(t, p.Relationships, 2)
	assert.False(t, p.Connected())

	tree, err := ToTree(v)
	require.NoError(t, err)
	units := tree.(map[string]any)["_value"].([]any)
	var tags []string
	for _, u := range units {
		tags = append(tags, u.(map[string]any)["$type"].(string))
	}
	assert.Equal(t, []string{"Node", "Relationship", "Node", "Relationship"}, tags)
}

func TestPath_Empty(t *testing.T) {
	v, err := Unmarshal(pathJSON())
	require.NoError(t, err)
	p, err := v.AsPath()
	require.NoError(t, err)
	assert.Empty(t, p.Nodes)
	assert.Empty(t, p.Relationships)
	assert.False(t, p.Connected())

	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"$type":"Path","_value":[]}`, string(out))
}

func TestPath_UnexpectedElement(t *testing.T) {
	input := pathJSON(nodeUnit("a"), `{"$type":"String","_value":"oops"}`)
	_, err := Unmarshal(input)
	require.ErrorIs(t, err, ErrUnexpectedPathElement)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "/_value/1", e.Path)
}

func TestPath_BadElementReportsPath(t *testing.T) {
	input := pathJSON(nodeUnit("a"), `{"$type":"Relationship","_value":{"_element_id":"r"}}`)
	_, err := Unmarshal(input)
	require.ErrorIs(t, err, ErrMissingField)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "/_value/1/_value", e.Path)
}

func TestPath_Connected(t *testing.T) {
	a, b, c := &Node{ElementID: "a"}, &Node{ElementID: "b"}, &Node{ElementID: "c"}
	tests := []struct {
		name string
		path *Path
		want bool
	}{
		{"single node", &Path{Nodes: []*Node{a}}, true},
		{"forward", &Path{
			Nodes:         []*Node{a, b},
			Relationships: []*Relationship{{StartNodeElementID: "a", EndNodeElementID: "b"}},
		}, true},
		{"backward", &Path{
			Nodes:         []*Node{a, b},
			Relationships: []*Relationship{{StartNodeElementID: "b", EndNodeElementID: "a"}},
		}, true},
		{"broken", &Path{
			Nodes:         []*Node{a, b, c},
			Relationships: []*Relationship{{StartNodeElementID: "a", EndNodeElementID: "b"}, {StartNodeElementID: "a", EndNodeElementID: "c"}},
		}, false},
		{"count mismatch", &Path{Nodes: []*Node{a, b}}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.Connected())
		})
	}
}
