package tjson

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Scalar Codecs
// ============================================================

func decodeNull(p any) (*Value, error) {
	if p != nil {
		return nil, decodeErr(ErrUnexpectedPayload, "Null payload is %s, want null", describe(p))
	}
	return Null(), nil
}

func decodeBool(p any) (*Value, error) {
	b, ok := p.(bool)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "Boolean payload is %s, want boolean", describe(p))
	}
	return Bool(b), nil
}

func decodeString(p any) (*Value, error) {
	s, ok := p.(string)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "String payload is %s, want string", describe(p))
	}
	return Str(s), nil
}

// Integers travel as decimal strings so values beyond 2^53 survive JSON
// readers that only have doubles.
func decodeInt(p any) (*Value, error) {
	s, ok := p.(string)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "Integer payload is %s, want decimal string", describe(p))
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, decodeErr(ErrInvalidIntegerLiteral, "%q", s)
	}
	return Int(n), nil
}

func encodeInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Non-finite floats use the spellings of the query engine.
const (
	floatNaN    = "NaN"
	floatPosInf = "Infinity"
	floatNegInf = "-Infinity"
)

func decodeFloat(p any) (*Value, error) {
	s, ok := p.(string)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "Float payload is %s, want decimal string", describe(p))
	}
	f, err := parseFloatLiteral(s)
	if err != nil {
		return nil, decodeErr(ErrInvalidFloatLiteral, "%q", s)
	}
	return Float(f), nil
}

// parseFloatLiteral parses an optionally signed decimal with an optional
// fraction and exponent ("1", "-0.5", ".5", "1.", "2.5E-3"), or NaN, Inf
// or Infinity in any case. Go literal forms such as hex mantissas and
// digit separators are rejected.
func parseFloatLiteral(s string) (float64, error) {
	if !isDecimalFloat(s) && !isFloatSpecial(s) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

func isDecimalFloat(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	whole := digitRun(s[i:])
	i += whole
	frac := 0
	if i < len(s) && s[i] == '.' {
		i++
		frac = digitRun(s[i:])
		i += frac
	}
	if whole+frac == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := digitRun(s[i:])
		if exp == 0 {
			return false
		}
		i += exp
	}
	return i == len(s)
}

// digitRun returns the number of leading ASCII digits of s.
func digitRun(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// isFloatSpecial reports whether s spells a non-finite float. Only the
// infinities take a sign.
func isFloatSpecial(s string) bool {
	signed := s != "" && (s[0] == '+' || s[0] == '-')
	if signed {
		s = s[1:]
	}
	switch strings.ToLower(s) {
	case "inf", "infinity":
		return true
	case "nan":
		return !signed
	}
	return false
}

// encodeFloat uses the shortest representation that parses back to the
// same bit pattern.
func encodeFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return floatNaN
	case math.IsInf(f, 1):
		return floatPosInf
	case math.IsInf(f, -1):
		return floatNegInf
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func decodeBytes(p any) (*Value, error) {
	items, ok := p.([]any)
	if !ok {
		// Binary front-ends may surface a native byte string.
		if b, isBytes := p.([]byte); isBytes {
			return Bytes(b), nil
		}
		return nil, decodeErr(ErrUnexpectedPayload, "ByteArray payload is %s, want array", describe(p))
	}
	out := make([]byte, len(items))
	for i, item := range items {
		n, ok := toInt64(item)
		if !ok || n < 0 || n > 255 {
			return nil, at(decodeErr(ErrByteOutOfRange, "element %d is %v", i, item), strconv.Itoa(i))
		}
		out[i] = byte(n)
	}
	return &Value{kind: KindByteArray, bytesVal: out}, nil
}

func encodeBytes(b []byte) []any {
	out := make([]any, len(b))
	for i, c := range b {
		out[i] = int64(c)
	}
	return out
}

// toInt64 converts an integral tree number to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return toInt64(float64(n))
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	}
	return 0, false
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}
