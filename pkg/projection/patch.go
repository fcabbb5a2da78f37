package projection

// Mode selects the merge semantics of Patch.
type Mode string

const (
	// ModePatch deep-merges the update into the target.
	ModePatch Mode = "patch"
	// ModeReplace discards the target and keeps the update.
	ModeReplace Mode = "replace"
)

// Patch merges update into target and returns the result. Neither input is
// mutated.
//
// Merge rules for ModePatch:
//   - objects merge recursively, update keys override target keys
//   - arrays concatenate, target elements first
//   - scalar conflicts are overridden by the update
//
// ModeReplace returns a deep copy of the update.
func Patch(target, update map[string]any, mode Mode) map[string]any {
	if mode == ModeReplace {
		return Clone(update)
	}
	merged := mergeMaps(target, update)
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

func mergeMaps(target, update map[string]any) map[string]any {
	out := make(map[string]any, len(target)+len(update))
	for k, v := range target {
		out[k] = cloneValue(v)
	}
	for k, v := range update {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(target, update any) any {
	switch u := update.(type) {
	case map[string]any:
		if t, ok := target.(map[string]any); ok {
			return mergeMaps(t, u)
		}
		return cloneValue(u)
	case []any:
		if t, ok := target.([]any); ok {
			merged := make([]any, 0, len(t)+len(u))
			for _, v := range t {
				merged = append(merged, cloneValue(v))
			}
			for _, v := range u {
				merged = append(merged, cloneValue(v))
			}
			return merged
		}
		return cloneValue(u)
	default:
		return update
	}
}

// Clone returns a deep copy of an object.
func Clone(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneValue returns a deep copy of an arbitrary JSON-like value.
func CloneValue(in any) any {
	return cloneValue(in)
}

func cloneValue(in any) any {
	switch v := in.(type) {
	case map[string]any:
		return Clone(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return in
	}
}
