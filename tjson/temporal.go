package tjson

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================
// Temporal Codecs
// ============================================================
//
// Patterns:
//
//	Date           YYYY-MM-DD
//	Time           HH:MM:SS
//	DateTime       YYYY-MM-DDTHH:MM:SS
//	ZonedDateTime  YYYY-MM-DDTHH:MM:SS[±HH:MM]
//	Duration       [-]P[nY][nM][nW][nD][T[nH][nM][n[.f]S]]
//
// Years outside 0000-9999 are written with more digits or a leading
// minus and read back the same way, up to the years time.Time can hold.
// Offsets range over ±23:59.

func decodeTemporal(kind Kind, p any) (*Value, error) {
	s, ok := p.(string)
	if !ok {
		return nil, decodeErr(ErrUnexpectedPayload, "%s payload is %s, want string", kind, describe(p))
	}
	var (
		t     time.Time
		d     Duration
		valid bool
	)
	switch kind {
	case KindDate:
		t, valid = parseDate(s)
	case KindTime:
		t, valid = parseTime(s)
	case KindDateTime:
		t, valid = parseDateTime(s)
	case KindZonedDateTime:
		t, valid = parseZonedDateTime(s)
	case KindDuration:
		d, valid = parseDuration(s)
	}
	if !valid {
		return nil, decodeErr(ErrInvalidTemporalLiteral, "%s %q", kind, s)
	}
	return &Value{kind: kind, timeVal: t, durVal: d}, nil
}

func encodeTemporal(v *Value) string {
	t := v.timeVal
	var b []byte
	switch v.kind {
	case KindDate:
		b = appendDate(b, t)
	case KindTime:
		b = appendClock(b, t)
	case KindDateTime:
		b = appendDate(b, t)
		b = append(b, 'T')
		b = appendClock(b, t)
	case KindZonedDateTime:
		b = appendDate(b, t)
		b = append(b, 'T')
		b = appendClock(b, t)
		b = appendOffset(b, t)
	case KindDuration:
		return v.durVal.String()
	}
	return string(b)
}

// ============================================================
// Text scanning
// ============================================================

// scanner walks a fixed-shape temporal literal.
type scanner struct {
	s  string
	i  int
	ok bool
}

func newScanner(s string) *scanner {
	return &scanner{s: s, ok: true}
}

// digits reads exactly n ASCII digits.
func (sc *scanner) digits(n int) int {
	if !sc.ok || sc.i+n > len(sc.s) {
		sc.ok = false
		return 0
	}
	v := 0
	for _, c := range []byte(sc.s[sc.i : sc.i+n]) {
		if c < '0' || c > '9' {
			sc.ok = false
			return 0
		}
		v = v*10 + int(c-'0')
	}
	sc.i += n
	return v
}

// maxYearDigits covers every year a time.Time can hold (about ±2.9e11).
// Years that still overflow are caught by fields.
const maxYearDigits = 12

// year reads an optional minus and four to maxYearDigits digits.
func (sc *scanner) year() int {
	neg := sc.peek('-')
	if neg {
		sc.i++
	}
	n := 0
	for sc.i+n < len(sc.s) && sc.s[sc.i+n] >= '0' && sc.s[sc.i+n] <= '9' {
		n++
	}
	if n < 4 || n > maxYearDigits {
		sc.ok = false
		return 0
	}
	y := sc.digits(n)
	if neg {
		return -y
	}
	return y
}

func (sc *scanner) peek(c byte) bool {
	return sc.ok && sc.i < len(sc.s) && sc.s[sc.i] == c
}

func (sc *scanner) lit(c byte) {
	if !sc.peek(c) {
		sc.ok = false
		return
	}
	sc.i++
}

func (sc *scanner) done() bool {
	return sc.ok && sc.i == len(sc.s)
}

func (sc *scanner) date() (y int, m time.Month, d int) {
	y = sc.year()
	sc.lit('-')
	m = time.Month(sc.digits(2))
	sc.lit('-')
	d = sc.digits(2)
	if m < time.January || m > time.December || d < 1 || d > daysIn(y, m) {
		sc.ok = false
	}
	return y, m, d
}

func (sc *scanner) clock() (h, mi, s int) {
	h = sc.digits(2)
	sc.lit(':')
	mi = sc.digits(2)
	sc.lit(':')
	s = sc.digits(2)
	if h > 23 || mi > 59 || s > 59 {
		sc.ok = false
	}
	return h, mi, s
}

// maxOffset is the largest UTC offset, in seconds, of a ZonedDateTime.
const maxOffset = 23*3600 + 59*60

// offset reads "[±HH:MM]" and returns the offset in seconds.
func (sc *scanner) offset() int {
	sc.lit('[')
	sign := 1
	switch {
	case sc.peek('+'):
	case sc.peek('-'):
		sign = -1
	default:
		sc.ok = false
		return 0
	}
	sc.i++
	h := sc.digits(2)
	sc.lit(':')
	m := sc.digits(2)
	sc.lit(']')
	if h*3600+m*60 > maxOffset || m > 59 {
		sc.ok = false
	}
	return sign * (h*3600 + m*60)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// fields builds a time and reports whether it kept the year, which fails
// only when the year is beyond what time.Time represents.
func fields(y int, m time.Month, d, h, mi, sec int, loc *time.Location) (time.Time, bool) {
	t := time.Date(y, m, d, h, mi, sec, 0, loc)
	return t, t.Year() == y
}

func parseDate(s string) (time.Time, bool) {
	sc := newScanner(s)
	y, m, d := sc.date()
	if !sc.done() {
		return time.Time{}, false
	}
	return fields(y, m, d, 0, 0, 0, time.UTC)
}

func parseTime(s string) (time.Time, bool) {
	sc := newScanner(s)
	h, mi, sec := sc.clock()
	if !sc.done() {
		return time.Time{}, false
	}
	return time.Date(0, time.January, 1, h, mi, sec, 0, time.UTC), true
}

func parseDateTime(s string) (time.Time, bool) {
	sc := newScanner(s)
	y, m, d := sc.date()
	sc.lit('T')
	h, mi, sec := sc.clock()
	if !sc.done() {
		return time.Time{}, false
	}
	return fields(y, m, d, h, mi, sec, time.UTC)
}

func parseZonedDateTime(s string) (time.Time, bool) {
	sc := newScanner(s)
	y, m, d := sc.date()
	sc.lit('T')
	h, mi, sec := sc.clock()
	off := sc.offset()
	if !sc.done() {
		return time.Time{}, false
	}
	return fields(y, m, d, h, mi, sec, time.FixedZone("", off))
}

// ============================================================
// Formatting
// ============================================================

func appendPadded(b []byte, n, width int) []byte {
	s := strconv.Itoa(n)
	for i := len(s); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, s...)
}

func appendDate(b []byte, t time.Time) []byte {
	y := t.Year()
	if y < 0 {
		b = append(b, '-')
		y = -y
	}
	b = appendPadded(b, y, 4)
	b = append(b, '-')
	b = appendPadded(b, int(t.Month()), 2)
	b = append(b, '-')
	return appendPadded(b, t.Day(), 2)
}

func appendClock(b []byte, t time.Time) []byte {
	b = appendPadded(b, t.Hour(), 2)
	b = append(b, ':')
	b = appendPadded(b, t.Minute(), 2)
	b = append(b, ':')
	return appendPadded(b, t.Second(), 2)
}

func appendOffset(b []byte, t time.Time) []byte {
	_, off := t.Zone()
	b = append(b, '[')
	if off < 0 {
		b = append(b, '-')
		off = -off
	} else {
		b = append(b, '+')
	}
	b = appendPadded(b, off/3600, 2)
	b = append(b, ':')
	b = appendPadded(b, off%3600/60, 2)
	return append(b, ']')
}

// ============================================================
// Duration
// ============================================================

// Duration is a calendar-aware interval: months and days are kept apart
// from clock time because their length depends on the date they are
// applied to. Nanos is always in [0, 1e9).
type Duration struct {
	Months  int64
	Days    int64
	Seconds int64
	Nanos   int32
}

func (d Duration) normalize() Duration {
	d.Seconds += int64(d.Nanos / 1e9)
	d.Nanos %= 1e9
	if d.Nanos < 0 {
		d.Nanos += 1e9
		d.Seconds--
	}
	return d
}

// IsZero reports whether every component is zero.
func (d Duration) IsZero() bool {
	return d == Duration{}
}

// String returns the canonical text: years and months from Months, days
// from Days, and hours, minutes and seconds from the signed total of
// Seconds and Nanos. Zero components are omitted; the zero duration is
// "PT0S".
func (d Duration) String() string {
	d = d.normalize()
	if d.IsZero() {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteByte('P')
	if y := d.Months / 12; y != 0 {
		b.WriteString(strconv.FormatInt(y, 10))
		b.WriteByte('Y')
	}
	if m := d.Months % 12; m != 0 {
		b.WriteString(strconv.FormatInt(m, 10))
		b.WriteByte('M')
	}
	if d.Days != 0 {
		b.WriteString(strconv.FormatInt(d.Days, 10))
		b.WriteByte('D')
	}
	if d.Seconds == 0 && d.Nanos == 0 {
		return b.String()
	}

	b.WriteByte('T')
	sign := ""
	var abs uint64
	frac := int64(d.Nanos)
	switch {
	case d.Seconds >= 0:
		abs = uint64(d.Seconds)
	case frac > 0:
		sign = "-"
		abs = uint64(-(d.Seconds + 1))
		frac = 1e9 - frac
	default:
		sign = "-"
		abs = uint64(-(d.Seconds + 1)) + 1
	}
	if h := abs / 3600; h != 0 {
		b.WriteString(sign)
		b.WriteString(strconv.FormatUint(h, 10))
		b.WriteByte('H')
	}
	if m := abs % 3600 / 60; m != 0 {
		b.WriteString(sign)
		b.WriteString(strconv.FormatUint(m, 10))
		b.WriteByte('M')
	}
	if s := abs % 60; s != 0 || frac != 0 {
		b.WriteString(sign)
		b.WriteString(strconv.FormatUint(s, 10))
		if frac != 0 {
			f := strconv.FormatInt(frac+1e9, 10)[1:]
			b.WriteByte('.')
			b.WriteString(strings.TrimRight(f, "0"))
		}
		b.WriteByte('S')
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler with the canonical text.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// durationUnits lists the designators in the order they must appear.
// Units after the 'T' separator are the clock units.
var durationUnits = []struct {
	unit    byte
	clock   bool
	months  int64
	days    int64
	seconds int64
}{
	{'Y', false, 12, 0, 0},
	{'M', false, 1, 0, 0},
	{'W', false, 0, 7, 0},
	{'D', false, 0, 1, 0},
	{'H', true, 0, 0, 3600},
	{'M', true, 0, 0, 60},
	{'S', true, 0, 0, 1},
}

// ParseDuration parses duration text. Each component may carry its own
// sign; a leading minus negates the whole duration. Only the seconds
// component may have a fraction, of at most nine digits.
func ParseDuration(s string) (Duration, error) {
	d, ok := parseDuration(s)
	if !ok {
		return Duration{}, decodeErr(ErrInvalidTemporalLiteral, "Duration %q", s)
	}
	return d, nil
}

func parseDuration(s string) (Duration, bool) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return Duration{}, false
	}
	s = s[1:]

	var (
		d        Duration
		nanos    int64
		next     int // index into durationUnits of the earliest allowed unit
		clock    bool
		seen     bool
		clockSet bool
	)
	for len(s) > 0 {
		if s[0] == 'T' {
			if clock {
				return Duration{}, false
			}
			clock = true
			s = s[1:]
			for next < len(durationUnits) && !durationUnits[next].clock {
				next++
			}
			continue
		}

		numLen := 0
		if s[0] == '+' || s[0] == '-' {
			numLen++
		}
		for numLen < len(s) && (s[numLen] >= '0' && s[numLen] <= '9' || s[numLen] == '.') {
			numLen++
		}
		if numLen == len(s) {
			return Duration{}, false
		}
		num, unit := s[:numLen], s[numLen]
		s = s[numLen+1:]

		idx := -1
		for i := next; i < len(durationUnits); i++ {
			if durationUnits[i].unit == unit && durationUnits[i].clock == clock {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Duration{}, false
		}
		next = idx + 1
		u := durationUnits[idx]

		whole, frac, ok := parseDurationNumber(num, u.unit == 'S' && u.clock)
		if !ok {
			return Duration{}, false
		}
		if d.Months, ok = mulAdd(d.Months, whole, u.months); !ok {
			return Duration{}, false
		}
		if d.Days, ok = mulAdd(d.Days, whole, u.days); !ok {
			return Duration{}, false
		}
		if d.Seconds, ok = mulAdd(d.Seconds, whole, u.seconds); !ok {
			return Duration{}, false
		}
		nanos = frac
		seen = true
		if clock {
			clockSet = true
		}
	}
	if !seen || (clock && !clockSet) {
		return Duration{}, false
	}

	if nanos < 0 {
		var ok bool
		if d.Seconds, ok = checkedAdd(d.Seconds, -1); !ok {
			return Duration{}, false
		}
		nanos += 1e9
	}
	d.Nanos = int32(nanos)

	if neg {
		return d.negate()
	}
	return d, true
}

// parseDurationNumber parses "[±]digits[.digits]". The fraction, in
// nanoseconds, carries the sign of the number.
func parseDurationNumber(num string, allowFrac bool) (whole, frac int64, ok bool) {
	intPart, fracPart, hasFrac := strings.Cut(num, ".")
	if hasFrac && (!allowFrac || len(fracPart) == 0 || len(fracPart) > 9) {
		return 0, 0, false
	}
	digits := strings.TrimLeft(intPart, "+-")
	if digits == "" || strings.ContainsAny(digits, "+-") {
		return 0, 0, false
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if hasFrac {
		for _, c := range []byte(fracPart) {
			if c < '0' || c > '9' {
				return 0, 0, false
			}
		}
		f, _ := strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
		if intPart[0] == '-' {
			f = -f
		}
		frac = f
	}
	return whole, frac, true
}

func (d Duration) negate() (Duration, bool) {
	if d.Months == math.MinInt64 || d.Days == math.MinInt64 || d.Seconds == math.MinInt64 {
		return Duration{}, false
	}
	out := Duration{Months: -d.Months, Days: -d.Days, Seconds: -d.Seconds}
	if d.Nanos > 0 {
		out.Seconds--
		out.Nanos = 1e9 - d.Nanos
	}
	return out, true
}

func mulAdd(acc, v, factor int64) (int64, bool) {
	if factor == 0 {
		return acc, true
	}
	p := v * factor
	if v != 0 && (p/factor != v) {
		return 0, false
	}
	return checkedAdd(acc, p)
}

func checkedAdd(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}
