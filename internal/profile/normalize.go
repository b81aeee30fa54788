package profile

// NormalizeSelections converts a persisted selection payload into the
// canonical map form. Two shapes exist in the wild: the current mapping from
// identifier to boolean, and a historical ordered sequence of identifiers.
// A sequence ["radial","median"] means {"radial":true,"median":true}.
//
// Absence yields an empty map. A value in neither shape also yields an empty
// map, with ok=false so callers can log the malformed payload; pages degrade
// to "nothing selected" instead of failing. Runs once at the store-read
// boundary; downstream code only ever sees the map form.
func NormalizeSelections(v any) (map[string]bool, bool) {
	switch val := v.(type) {
	case nil:
		return map[string]bool{}, true
	case map[string]bool:
		out := make(map[string]bool, len(val))
		for k, b := range val {
			out[k] = b
		}
		return out, true
	case map[string]any:
		// Current shape, usually via JSON decoding. Non-boolean values are
		// dropped; the shape itself is still recognized.
		out := make(map[string]bool, len(val))
		for k, raw := range val {
			if b, ok := raw.(bool); ok {
				out[k] = b
			}
		}
		return out, true
	case []string:
		out := make(map[string]bool, len(val))
		for _, k := range val {
			out[k] = true
		}
		return out, true
	case []any:
		// Historical shape, usually via JSON decoding. A non-string element
		// means the payload is neither recognized shape.
		out := make(map[string]bool, len(val))
		for _, raw := range val {
			k, ok := raw.(string)
			if !ok {
				return map[string]bool{}, false
			}
			out[k] = true
		}
		return out, true
	default:
		return map[string]bool{}, false
	}
}

// CanonicalSelections converts the normalized map into the value written back
// to the store. Only affirmative selections are persisted; the write path
// never re-emits the sequence shape.
func CanonicalSelections(selections map[string]bool) map[string]any {
	out := make(map[string]any, len(selections))
	for k, selected := range selections {
		if selected {
			out[k] = true
		}
	}
	return out
}
