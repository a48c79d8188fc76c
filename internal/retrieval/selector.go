package retrieval

// SelectCollections narrows the full registry snapshot to the collections
// worth querying for one request.
//
// The fallback ladder, in order:
//
//  1. filter to the directive's candidates (no candidates: start from all)
//  2. prefer collections that currently hold documents
//  3. nothing populated among candidates: fall back to any populated
//     collection across the unfiltered set
//  4. still nothing: return the unfiltered set unchanged — downstream
//     treats an all-empty selection as "no context available", not as an
//     error
func SelectCollections(all []CollectionState, directives Directives) []CollectionState {
	filtered := all
	if len(directives.Candidates) > 0 {
		wanted := make(map[string]bool, len(directives.Candidates))
		for _, name := range directives.Candidates {
			wanted[name] = true
		}
		filtered = nil
		for _, state := range all {
			if wanted[state.Name] {
				filtered = append(filtered, state)
			}
		}
	}

	if populated := nonEmpty(filtered); len(populated) > 0 {
		return populated
	}
	if populated := nonEmpty(all); len(populated) > 0 {
		return populated
	}
	return all
}

func nonEmpty(states []CollectionState) []CollectionState {
	var out []CollectionState
	for _, state := range states {
		if state.DocumentCount > 0 {
			out = append(out, state)
		}
	}
	return out
}
