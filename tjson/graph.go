package tjson

import "strconv"

// ============================================================
// Graph-Structure Codecs
// ============================================================

// Node and relationship payload fields.
const (
	fieldElementID   = "_element_id"
	fieldLabels      = "_labels"
	fieldProperties  = "_properties"
	fieldRelType     = "_type"
	fieldStartNodeID = "_start_node_element_id"
	fieldEndNodeID   = "_end_node_element_id"
)

// payloadObject asserts that a graph payload is an object.
func payloadObject(kind Kind, p any) (map[string]any, error) {
	obj, ok := p.(map[string]any)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "%s payload is %s, want object", kind, describe(p))
	}
	return obj, nil
}

func stringField(obj map[string]any, name string) (string, error) {
	raw, ok := obj[name]
	if !ok {
		return "", missingField(name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", at(decodeErr(ErrUnexpectedPayload, "%s is %s, want string", name, describe(raw)), name)
	}
	return s, nil
}

func (d *decoder) propertiesField(obj map[string]any) (map[string]*Value, error) {
	raw, ok := obj[fieldProperties]
	if !ok {
		return nil, missingField(fieldProperties)
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return nil, at(decodeErr(ErrUnexpectedPayload, "%s is %s, want object", fieldProperties, describe(raw)), fieldProperties)
	}
	m, err := d.properties(props)
	if err != nil {
		return nil, at(err, fieldProperties)
	}
	return m, nil
}

func (d *decoder) node(p any) (*Node, error) {
	obj, err := payloadObject(KindNode, p)
	if err != nil {
		return nil, err
	}
	id, err := stringField(obj, fieldElementID)
	if err != nil {
		return nil, err
	}
	rawLabels, ok := obj[fieldLabels]
	if !ok {
		return nil, missingField(fieldLabels)
	}
	items, ok := rawLabels.([]any)
	if !ok {
		return nil, at(decodeErr(ErrUnexpectedPayload, "%s is %s, want array", fieldLabels, describe(rawLabels)), fieldLabels)
	}
	labels := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			err := decodeErr(ErrUnexpectedPayload, "label is %s, want string", describe(item))
			return nil, at(at(err, strconv.Itoa(i)), fieldLabels)
		}
		labels[i] = s
	}
	props, err := d.propertiesField(obj)
	if err != nil {
		return nil, err
	}
	return &Node{ElementID: id, Labels: labels, Properties: props}, nil
}

func (d *decoder) relationship(p any) (*Relationship, error) {
	obj, err := payloadObject(KindRelationship, p)
	if err != nil {
		return nil, err
	}
	r := &Relationship{}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{fieldElementID, &r.ElementID},
		{fieldRelType, &r.Type},
		{fieldStartNodeID, &r.StartNodeElementID},
		{fieldEndNodeID, &r.EndNodeElementID},
	} {
		if *f.dst, err = stringField(obj, f.name); err != nil {
			return nil, err
		}
	}
	if r.Properties, err = d.propertiesField(obj); err != nil {
		return nil, err
	}
	return r, nil
}

func (d *decoder) decodeNode(p any) (*Value, error) {
	n, err := d.node(p)
	if err != nil {
		return nil, err
	}
	return &Value{kind: KindNode, nodeVal: n}, nil
}

func (d *decoder) decodeRelationship(p any) (*Value, error) {
	r, err := d.relationship(p)
	if err != nil {
		return nil, err
	}
	return &Value{kind: KindRelationship, relVal: r}, nil
}

// decodePath splits a flat sequence of Node and Relationship envelopes
// into two collections, each in encounter order. Linkage between
// relationship i and nodes i, i+1 is not checked; see Path.Connected.
func (d *decoder) decodePath(p any) (*Value, error) {
	items, ok := p.([]any)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "Path payload is %s, want array", describe(p))
	}
	path := &Path{}
	for i, unit := range items {
		v, err := d.envelope(unit)
		if err != nil {
			return nil, at(err, strconv.Itoa(i))
		}
		switch v.kind {
		case KindNode:
			path.Nodes = append(path.Nodes, v.nodeVal)
		case KindRelationship:
			path.Relationships = append(path.Relationships, v.relVal)
		default:
			err := decodeErr(ErrUnexpectedPathElement, "element %d is %s, want Node or Relationship", i, v.kind)
			return nil, at(err, strconv.Itoa(i))
		}
	}
	return &Value{kind: KindPath, pathVal: path}, nil
}

// ============================================================
// Encoding
// ============================================================

func (e *encoder) encodeNode(n *Node) (map[string]any, error) {
	if n == nil {
		n = &Node{}
	}
	props, err := e.encodeMap(n.Properties)
	if err != nil {
		return nil, at(err, fieldProperties)
	}
	labels := make([]any, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l
	}
	return map[string]any{
		fieldElementID:  n.ElementID,
		fieldLabels:     labels,
		fieldProperties: props,
	}, nil
}

func (e *encoder) encodeRelationship(r *Relationship) (map[string]any, error) {
	if r == nil {
		r = &Relationship{}
	}
	props, err := e.encodeMap(r.Properties)
	if err != nil {
		return nil, at(err, fieldProperties)
	}
	return map[string]any{
		fieldElementID:   r.ElementID,
		fieldRelType:     r.Type,
		fieldStartNodeID: r.StartNodeElementID,
		fieldEndNodeID:   r.EndNodeElementID,
		fieldProperties:  props,
	}, nil
}

// encodePath interleaves node 0, relationship 0, node 1, ... and then
// appends whatever is left of the longer collection.
func (e *encoder) encodePath(p *Path) ([]any, error) {
	if p == nil {
		return []any{}, nil
	}
	out := make([]any, 0, len(p.Nodes)+len(p.Relationships))
	for i := 0; i < max(len(p.Nodes), len(p.Relationships)); i++ {
		if i < len(p.Nodes) {
			unit, err := e.wrap(KindNode, func() (any, error) { return e.encodeNode(p.Nodes[i]) })
			if err != nil {
				return nil, at(err, strconv.Itoa(len(out)))
			}
			out = append(out, unit)
		}
		if i < len(p.Relationships) {
			unit, err := e.wrap(KindRelationship, func() (any, error) { return e.encodeRelationship(p.Relationships[i]) })
			if err != nil {
				return nil, at(err, strconv.Itoa(len(out)))
			}
			out = append(out, unit)
		}
	}
	return out, nil
}

// wrap builds an envelope around a payload produced by fn, counting one
// level of depth.
func (e *encoder) wrap(kind Kind, fn func() (any, error)) (any, error) {
	if e.depth >= e.maxDepth {
		return nil, &Error{Op: "encode", Kind: ErrStructuralDepthExceeded,
			Detail: "value nests more than " + strconv.Itoa(e.maxDepth) + " envelopes"}
	}
	e.depth++
	defer func() { e.depth-- }()
	p, err := fn()
	if err != nil {
		return nil, at(err, fieldValue)
	}
	return map[string]any{fieldType: kind.String(), fieldValue: p}, nil
}
