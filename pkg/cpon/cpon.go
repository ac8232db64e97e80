// Package cpon implements the canonical textual encoding used for method
// arguments and results. It covers the literal subset a CLI user actually
// types: null, booleans, integers (signed and unsigned), doubles, strings,
// hex blobs, datetimes, lists, maps and integer-keyed maps.
//
// Metadata prefixes are not supported; they never appear in interactive
// parameters.
package cpon

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// UInt distinguishes unsigned literals (the "u" suffix) from plain integers.
type UInt uint64

// Decode parses a single literal. Trailing non-whitespace input is an error,
// the whole text must be one value.
func Decode(s string) (any, error) {
	d := &decoder{src: s}
	d.skipSpace()
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.pos != len(d.src) {
		return nil, fmt.Errorf("trailing input at %d: %q", d.pos, d.src[d.pos:])
	}
	return v, nil
}

type decoder struct {
	src string
	pos int
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.src) && (d.src[d.pos] == ' ' || d.src[d.pos] == '\t' || d.src[d.pos] == '\n' || d.src[d.pos] == '\r') {
		d.pos++
	}
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	return d.src[d.pos], true
}

func (d *decoder) literal(lit string, v any) (any, error) {
	if !strings.HasPrefix(d.src[d.pos:], lit) {
		return nil, fmt.Errorf("invalid literal at %d", d.pos)
	}
	d.pos += len(lit)
	return v, nil
}

func (d *decoder) value() (any, error) {
	c, ok := d.peek()
	if !ok {
		return nil, errors.New("unexpected end of input")
	}
	switch {
	case c == 'n':
		return d.literal("null", nil)
	case c == 't':
		return d.literal("true", true)
	case c == 'f':
		return d.literal("false", false)
	case c == '"':
		return d.str()
	case c == 'x':
		return d.hexBlob()
	case c == 'b':
		return d.escBlob()
	case c == 'd':
		return d.datetime()
	case c == '[':
		return d.list()
	case c == '{':
		return d.strMap()
	case c == 'i':
		return d.intMap()
	case c == '-' || (c >= '0' && c <= '9'):
		return d.number()
	default:
		return nil, fmt.Errorf("unexpected character %q at %d", c, d.pos)
	}
}

func (d *decoder) number() (any, error) {
	start := d.pos
	if c, ok := d.peek(); ok && c == '-' {
		d.pos++
	}
	digits := 0
	hex := false
	if strings.HasPrefix(d.src[d.pos:], "0x") || strings.HasPrefix(d.src[d.pos:], "0X") {
		hex = true
		d.pos += 2
	}
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if (c >= '0' && c <= '9') || (hex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'))) {
			digits++
			d.pos++
			continue
		}
		break
	}
	if digits == 0 {
		return nil, fmt.Errorf("malformed number at %d", start)
	}
	// Unsigned suffix.
	if c, ok := d.peek(); ok && c == 'u' {
		d.pos++
		u, err := strconv.ParseUint(strings.TrimPrefix(d.src[start:d.pos-1], "0x"), base(hex), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed unsigned at %d: %w", start, err)
		}
		return UInt(u), nil
	}
	// Double: fraction or exponent present.
	if !hex {
		mark := d.pos
		if c, ok := d.peek(); ok && c == '.' {
			d.pos++
			for d.pos < len(d.src) && d.src[d.pos] >= '0' && d.src[d.pos] <= '9' {
				d.pos++
			}
		}
		if c, ok := d.peek(); ok && (c == 'e' || c == 'E') {
			d.pos++
			if c, ok := d.peek(); ok && (c == '+' || c == '-') {
				d.pos++
			}
			for d.pos < len(d.src) && d.src[d.pos] >= '0' && d.src[d.pos] <= '9' {
				d.pos++
			}
		}
		if d.pos != mark {
			f, err := strconv.ParseFloat(d.src[start:d.pos], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed double at %d: %w", start, err)
			}
			return f, nil
		}
	}
	text := d.src[start:d.pos]
	if hex {
		neg := strings.HasPrefix(text, "-")
		text = strings.TrimPrefix(strings.TrimPrefix(text, "-"), "0x")
		i, err := strconv.ParseInt(text, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed integer at %d: %w", start, err)
		}
		if neg {
			i = -i
		}
		return i, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed integer at %d: %w", start, err)
	}
	return i, nil
}

func base(hex bool) int {
	if hex {
		return 16
	}
	return 10
}

func (d *decoder) str() (string, error) {
	if d.src[d.pos] != '"' {
		return "", fmt.Errorf("expected string at %d", d.pos)
	}
	d.pos++
	var b strings.Builder
	for {
		if d.pos >= len(d.src) {
			return "", errors.New("unterminated string")
		}
		c := d.src[d.pos]
		switch c {
		case '"':
			d.pos++
			return b.String(), nil
		case '\\':
			d.pos++
			if d.pos >= len(d.src) {
				return "", errors.New("unterminated escape")
			}
			switch e := d.src[d.pos]; e {
			case '"', '\\', '/':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				return "", fmt.Errorf("unknown escape %q at %d", e, d.pos)
			}
			d.pos++
		default:
			r, size := utf8.DecodeRuneInString(d.src[d.pos:])
			b.WriteRune(r)
			d.pos += size
		}
	}
}

func (d *decoder) hexBlob() ([]byte, error) {
	if !strings.HasPrefix(d.src[d.pos:], `x"`) {
		return nil, fmt.Errorf("expected hex blob at %d", d.pos)
	}
	d.pos += 2
	end := strings.IndexByte(d.src[d.pos:], '"')
	if end < 0 {
		return nil, errors.New("unterminated blob")
	}
	hexstr := d.src[d.pos : d.pos+end]
	d.pos += end + 1
	if len(hexstr)%2 != 0 {
		return nil, errors.New("odd hex blob length")
	}
	out := make([]byte, 0, len(hexstr)/2)
	for i := 0; i < len(hexstr); i += 2 {
		b, err := strconv.ParseUint(hexstr[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed hex blob: %w", err)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

func (d *decoder) escBlob() ([]byte, error) {
	if !strings.HasPrefix(d.src[d.pos:], `b"`) {
		return nil, fmt.Errorf("expected blob at %d", d.pos)
	}
	d.pos++ // leave the quote for the string scanner
	s, err := d.str()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (d *decoder) datetime() (time.Time, error) {
	if !strings.HasPrefix(d.src[d.pos:], `d"`) {
		return time.Time{}, fmt.Errorf("expected datetime at %d", d.pos)
	}
	d.pos++
	s, err := d.str()
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed datetime %q", s)
}

func (d *decoder) list() ([]any, error) {
	d.pos++ // '['
	out := []any{}
	for {
		d.skipSpace()
		if c, ok := d.peek(); ok && c == ']' {
			d.pos++
			return out, nil
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		d.skipSpace()
		if c, ok := d.peek(); ok && c == ',' {
			d.pos++
		}
	}
}

func (d *decoder) strMap() (map[string]any, error) {
	d.pos++ // '{'
	out := map[string]any{}
	for {
		d.skipSpace()
		c, ok := d.peek()
		if !ok {
			return nil, errors.New("unterminated map")
		}
		if c == '}' {
			d.pos++
			return out, nil
		}
		k, err := d.str()
		if err != nil {
			return nil, err
		}
		d.skipSpace()
		if c, ok := d.peek(); !ok || c != ':' {
			return nil, fmt.Errorf("expected ':' at %d", d.pos)
		}
		d.pos++
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out[k] = v
		d.skipSpace()
		if c, ok := d.peek(); ok && c == ',' {
			d.pos++
		}
	}
}

func (d *decoder) intMap() (map[int64]any, error) {
	if !strings.HasPrefix(d.src[d.pos:], "i{") {
		return nil, fmt.Errorf("expected imap at %d", d.pos)
	}
	d.pos += 2
	out := map[int64]any{}
	for {
		d.skipSpace()
		c, ok := d.peek()
		if !ok {
			return nil, errors.New("unterminated imap")
		}
		if c == '}' {
			d.pos++
			return out, nil
		}
		kv, err := d.number()
		if err != nil {
			return nil, err
		}
		k, ok := kv.(int64)
		if !ok {
			return nil, errors.New("imap keys must be integers")
		}
		d.skipSpace()
		if c, ok := d.peek(); !ok || c != ':' {
			return nil, fmt.Errorf("expected ':' at %d", d.pos)
		}
		d.pos++
		d.skipSpace()
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out[k] = v
		d.skipSpace()
		if c, ok := d.peek(); ok && c == ',' {
			d.pos++
		}
	}
}

// Encode renders a value back to its canonical textual form. It accepts the
// types Decode produces plus the common Go aliases adapters may hand back.
func Encode(v any) string {
	var b strings.Builder
	encode(&b, v)
	return b.String()
}

func encode(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case int:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case UInt:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
		b.WriteByte('u')
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
		b.WriteByte('u')
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			b.WriteString(strconv.FormatFloat(t, 'f', 1, 64))
		} else {
			b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
		}
	case string:
		b.WriteString(quote(t))
	case []byte:
		b.WriteString(`x"`)
		for _, c := range t {
			fmt.Fprintf(b, "%02x", c)
		}
		b.WriteByte('"')
	case time.Time:
		b.WriteString(`d"`)
		b.WriteString(t.Format(time.RFC3339Nano))
		b.WriteByte('"')
	case []any:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(b, e)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(e))
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(k))
			b.WriteByte(':')
			encode(b, t[k])
		}
		b.WriteByte('}')
	case map[int64]any:
		keys := make([]int64, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		b.WriteString("i{")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(k, 10))
			b.WriteByte(':')
			encode(b, t[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%v", t)
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
