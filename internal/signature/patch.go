package signature

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MinSignatureLen is the shortest length a thoughtSignature can be and
// still be treated as real rather than a placeholder; upstreams
// occasionally echo short placeholder strings.
const MinSignatureLen = 8

// PatchOutbound walks every content[].parts[] entry under contentsPath in
// rawJSON and rewrites thoughtSignature fields:
//
//   - a part that already carries a real signature is cached under its
//     fingerprint and left untouched;
//   - a part with no signature is looked up by fingerprint; a hit fills the
//     signature in, a miss is resolved by the given Policy.
//
// It returns the possibly-rewritten JSON.
func PatchOutbound(rawJSON []byte, contentsPath string, cache *Cache, policy Policy) []byte {
	contents := gjson.GetBytes(rawJSON, contentsPath)
	if !contents.Exists() || !contents.IsArray() {
		return rawJSON
	}

	out := rawJSON
	// Walk in reverse so that dropping a part does not shift the indices of
	// parts we have not yet visited within the same content entry.
	contentIdx := -1
	contents.ForEach(func(_, _ gjson.Result) bool {
		contentIdx++
		return true
	})

	for ci := contentIdx; ci >= 0; ci-- {
		partsPath := fmt.Sprintf("%s.%d.parts", contentsPath, ci)
		parts := gjson.GetBytes(out, partsPath)
		if !parts.Exists() || !parts.IsArray() {
			continue
		}
		partCount := -1
		parts.ForEach(func(_, _ gjson.Result) bool { partCount++; return true })

		for pi := partCount; pi >= 0; pi-- {
			partPath := fmt.Sprintf("%s.%d", partsPath, pi)
			part := gjson.GetBytes(out, partPath)
			out = patchPart(out, partPath, part, cache, policy)
		}
	}
	return out
}

func patchPart(rawJSON []byte, partPath string, part gjson.Result, cache *Cache, policy Policy) []byte {
	isThought := part.Get("thought").Bool() && part.Get("text").String() != ""
	fc := part.Get("functionCall")
	isFunctionCall := fc.Exists()
	if !isThought && !isFunctionCall {
		return rawJSON
	}

	fp, ok := fingerprintPart(part, isFunctionCall)
	if !ok {
		return rawJSON
	}

	existing := part.Get("thoughtSignature").String()
	if isRealSignature(existing) {
		cache.Put(fp, existing)
		return rawJSON
	}

	if cached, hit := cache.Get(fp); hit {
		out, _ := sjson.SetBytes(rawJSON, partPath+".thoughtSignature", cached)
		return out
	}

	if isThought && policy.DropThoughtOnMiss() {
		out, _ := sjson.DeleteBytes(rawJSON, partPath)
		return out
	}

	out, _ := sjson.SetBytes(rawJSON, partPath+".thoughtSignature", cache.Fallback())
	return out
}

func fingerprintPart(part gjson.Result, isFunctionCall bool) (Fingerprint, bool) {
	if isFunctionCall {
		return FingerprintJSON(part.Get("functionCall").Raw)
	}
	return FingerprintText(part.Get("text").String())
}

func isRealSignature(sig string) bool {
	return sig != "" && sig != FallbackSignature && len(sig) >= MinSignatureLen
}

// SniffInbound inspects a single response part (as produced by the
// streaming or unary response path) and, if it carries a real signature on
// a thought-with-text or functionCall part, caches it under its
// fingerprint. It is safe to call on every chunk; the cache write never
// blocks the forward path.
func SniffInbound(part gjson.Result, cache *Cache) {
	sig := part.Get("thoughtSignature").String()
	if !isRealSignature(sig) {
		return
	}
	isThought := part.Get("thought").Bool() && part.Get("text").String() != ""
	fc := part.Get("functionCall")
	var fp Fingerprint
	var ok bool
	switch {
	case fc.Exists():
		fp, ok = FingerprintJSON(fc.Raw)
	case isThought:
		fp, ok = FingerprintText(part.Get("text").String())
	default:
		return
	}
	if !ok {
		return
	}
	cache.Put(fp, sig)
}
