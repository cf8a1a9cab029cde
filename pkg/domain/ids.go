package domain

import (
	"encoding/hex"
	"slices"

	"golang.org/x/crypto/blake2b"
)

// idBytes is the number of digest bytes kept for derived ids (128 bits).
const idBytes = 16

// MemoryID derives the id of a memory from its tenant and content.
// Identical content added twice within a tenant maps to the same id;
// the same content in another tenant does not.
func MemoryID(tenantID, content string) string {
	return deriveID("memory", tenantID, content)
}

// SkillID derives the id of a skill from its tenant and name.
func SkillID(tenantID, name string) string {
	return deriveID("skill", tenantID, name)
}

func deriveID(kind string, parts ...string) string {
	h, _ := blake2b.New256(nil) // only errors on an oversized key
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil)[:idBytes])
}

func hasAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// CloneMap deep-copies a JSON-like map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneAny(e)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
