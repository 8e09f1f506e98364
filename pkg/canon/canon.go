// Package canon implements the deterministic serialization the rest of
// piebot hashes and signs decisions against: key-sorted object encoding
// and a SHA-256 content hash over the result.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Mapper lets a domain struct opt into canonicalization by converting
// itself to a field-name-to-value mapping first.
type Mapper interface {
	CanonMap() map[string]any
}

// Canonicalize recursively rewrites mappings into key-sorted form and
// walks sequences in place. Scalars pass through unchanged. Structs that
// implement Mapper are converted to a map first.
func Canonicalize(value any) any {
	switch v := value.(type) {
	case Mapper:
		return Canonicalize(v.CanonMap())
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Canonicalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Canonicalize(val)
		}
		return out
	default:
		return value
	}
}

// Bytes emits UTF-8 JSON with no inter-token whitespace, colon and comma
// as the only separators, and Unicode written literally rather than
// \uXXXX-escaped. Keys of map[string]any are sorted lexicographically by
// byte order.
func Bytes(value any) []byte {
	var b strings.Builder
	encode(&b, Canonicalize(value))
	return []byte(b.String())
}

// Hash returns the lowercase-hex SHA-256 of Bytes(value).
func Hash(value any) string {
	sum := sha256.Sum256(Bytes(value))
	return hex.EncodeToString(sum[:])
}

// Parse decodes JSON bytes into the generic {nil, bool, float64, string,
// []any, map[string]any} shape Canonicalize/Bytes expect as input — the
// inverse of Bytes, for callers that round-trip a value through disk.
func Parse(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("canon: parse: %w", err)
	}
	return v, nil
}

func encode(b *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		encodeString(b, v)
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float64:
		// Integral floats (e.g. decoded from JSON numbers) render without
		// a decimal point so canonicalization is stable across encode/
		// decode round trips. Spec scope excludes non-integral floats.
		if v == float64(int64(v)) {
			b.WriteString(strconv.FormatInt(int64(v), 10))
		} else {
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	case map[string]any:
		encodeMap(b, v)
	case []any:
		encodeSlice(b, v)
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		encodeSlice(b, arr)
	default:
		panic(fmt.Sprintf("canon: unsupported type %T", value))
	}
}

func encodeMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, k)
		b.WriteByte(':')
		encode(b, m[k])
	}
	b.WriteByte('}')
}

func encodeSlice(b *strings.Builder, s []any) {
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		encode(b, v)
	}
	b.WriteByte(']')
}

// encodeString writes a JSON string literal, escaping only the characters
// JSON requires (quote, backslash, and control characters) and leaving
// non-ASCII Unicode untouched.
func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
