// Package signature implements the thought-signature engine: a
// fingerprint generator over text and function-call JSON, and a TTL+LRU
// cache mapping fingerprints to the opaque signature strings Gemini-family
// upstreams require on repeated turns.
package signature

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Fingerprint is a 64-bit hash with a 1-byte domain tag folded in,
// distinguishing a TEXT fingerprint from a JSON one.
type Fingerprint uint64

const (
	domainText byte = 0x01
	domainJSON byte = 0x02
)

// FingerprintText hashes trimmed text content. It returns ok=false for
// blank input.
func FingerprintText(text string) (Fingerprint, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte{domainText})
	_, _ = h.Write([]byte(trimmed))
	return Fingerprint(h.Sum64()), true
}

// FingerprintJSON hashes a JSON value (typically a functionCall part) after
// recursively sorting object keys. Array order is preserved because it is
// semantically meaningful.
func FingerprintJSON(raw string) (Fingerprint, bool) {
	parsed := gjson.Parse(raw)
	if !parsed.Exists() {
		return 0, false
	}
	canonical := canonicalize(parsed)
	h := fnv.New64a()
	_, _ = h.Write([]byte{domainJSON})
	_, _ = h.Write([]byte(canonical))
	return Fingerprint(h.Sum64()), true
}

// canonicalize renders a gjson.Result as JSON text with every object's keys
// sorted recursively. Arrays keep their original element order.
func canonicalize(v gjson.Result) string {
	switch {
	case v.IsObject():
		var keys []string
		fields := map[string]gjson.Result{}
		v.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			keys = append(keys, k)
			fields[k] = value
			return true
		})
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteJSON(k))
			b.WriteByte(':')
			b.WriteString(canonicalize(fields[k]))
		}
		b.WriteByte('}')
		return b.String()
	case v.IsArray():
		var b strings.Builder
		b.WriteByte('[')
		first := true
		v.ForEach(func(_, value gjson.Result) bool {
			if !first {
				b.WriteByte(',')
			}
			first = false
			b.WriteString(canonicalize(value))
			return true
		})
		b.WriteByte(']')
		return b.String()
	default:
		return v.Raw
	}
}

func quoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
