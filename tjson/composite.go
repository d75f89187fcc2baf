package tjson

import (
	"strconv"
	"strings"
)

// ============================================================
// Composite Codecs
// ============================================================

// decodeMap decodes an object of nested envelopes. When the front-end
// reports a key more than once, the last occurrence wins.
func (d *decoder) decodeMap(p any) (*Value, error) {
	obj, ok := p.(map[string]any)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "Map payload is %s, want object", describe(p))
	}
	m, err := d.properties(obj)
	if err != nil {
		return nil, err
	}
	return &Value{kind: KindMap, mapVal: m}, nil
}

// properties decodes a string-keyed object of envelopes. Shared by Map
// payloads and node/relationship property maps.
func (d *decoder) properties(obj map[string]any) (map[string]*Value, error) {
	out := make(map[string]*Value, len(obj))
	for k, unit := range obj {
		v, err := d.envelope(unit)
		if err != nil {
			return nil, at(err, pointerEscape(k))
		}
		out[k] = v
	}
	return out, nil
}

func (d *decoder) decodeList(p any) (*Value, error) {
	items, ok := p.([]any)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "List payload is %s, want array", describe(p))
	}
	out := make([]*Value, len(items))
	for i, unit := range items {
		v, err := d.envelope(unit)
		if err != nil {
			return nil, at(err, strconv.Itoa(i))
		}
		out[i] = v
	}
	return &Value{kind: KindList, listVal: out}, nil
}

func (e *encoder) encodeMap(m map[string]*Value) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		unit, err := e.envelope(v)
		if err != nil {
			return nil, at(err, pointerEscape(k))
		}
		out[k] = unit
	}
	return out, nil
}

func (e *encoder) encodeList(items []*Value) ([]any, error) {
	out := make([]any, len(items))
	for i, v := range items {
		unit, err := e.envelope(v)
		if err != nil {
			return nil, at(err, strconv.Itoa(i))
		}
		out[i] = unit
	}
	return out, nil
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// pointerEscape escapes a key for use as a JSON-pointer segment.
func pointerEscape(key string) string {
	return pointerEscaper.Replace(key)
}
