package engine

// score rates the generated set on a 0-100 scale (spec.md §4.4 stage
// "Score"): per-type count within its target window, translation coverage
// on flashcards, and presence of at least one mistake-derived grammar item,
// each contributing its own share of the total.
func score(counts map[string]int, mistakeCount int, translationPresent bool) int {
	targets := map[string][2]int{
		"flashcards": {8, 15},
		"cloze":      {6, 10},
		"grammar":    {6, 10},
		"sentence":   {6, 10},
	}

	const perType = 20
	var total int
	for typ, window := range targets {
		n := counts[typ]
		switch {
		case n >= window[0] && n <= window[1]:
			total += perType
		case n > 0:
			total += perType / 2
		}
	}
	if translationPresent {
		total += 10
	}
	if mistakeCount > 0 {
		total += 10
	}
	if total > 100 {
		total = 100
	}
	return total
}
