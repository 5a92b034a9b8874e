// Package layering composes override mappings from multiple sources into a
// single mapping suitable for Factory.Create, e.g. defaults file, user file,
// then command-line overrides.
package layering

// MergeOverrides composes override mappings ordered from strongest to
// weakest. Keys from stronger layers win; nested mappings merge recursively;
// everything else, slices included, replaces wholesale. The inputs are not
// modified.
func MergeOverrides(overrides ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(overrides) - 1; i >= 0; i-- {
		merged = mergeMaps(overrides[i], merged)
	}
	return merged
}

func mergeMaps(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = value
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := result[key].(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = mergeMaps(strongMap, weakMap)
			continue
		}
		if strongIsMap {
			result[key] = Clone(strongMap)
			continue
		}
		result[key] = value
	}
	return result
}

// Clone deep-copies an override mapping down through nested mappings.
// Non-map values are shared, which is safe for the plain scalars and slices
// produced by config file loaders.
func Clone(overrides map[string]any) map[string]any {
	if overrides == nil {
		return nil
	}
	clone := make(map[string]any, len(overrides))
	for key, value := range overrides {
		if nested, ok := value.(map[string]any); ok {
			clone[key] = Clone(nested)
			continue
		}
		clone[key] = value
	}
	return clone
}
