package matcher

import (
	"sort"

	"Tapflow/pkg/types"
)

// FindText returns the first element, in snapshot order, whose text matches
func FindText(elements []types.ScreenTextElement, target string, mode types.MatchMode) types.MatchResult {
	for i := range elements {
		if IsMatched(elements[i].Text, target, mode) {
			el := elements[i]
			return types.MatchResult{Matched: true, Element: &el}
		}
	}
	return types.MatchResult{}
}

// FindAllText returns every matching element in snapshot order
func FindAllText(elements []types.ScreenTextElement, target string, mode types.MatchMode) []types.ScreenTextElement {
	var out []types.ScreenTextElement
	for _, el := range elements {
		if IsMatched(el.Text, target, mode) {
			out = append(out, el)
		}
	}
	return out
}

// FindWithContext narrows the candidates to ctx.Region (by element origin)
// and, when several remain, picks the one most similar to target. That
// candidate is accepted only at or above ctx.MinScore; a zero MinScore means
// DefaultMinScore. A nil ctx behaves like FindText.
func FindWithContext(elements []types.ScreenTextElement, target string, mode types.MatchMode, ctx *types.MatchContext) types.MatchResult {
	if ctx == nil {
		return FindText(elements, target, mode)
	}

	var candidates []types.ScreenTextElement
	for _, el := range elements {
		if !IsMatched(el.Text, target, mode) {
			continue
		}
		if ctx.Region != nil && !ctx.Region.ContainsPoint(el.X, el.Y) {
			continue
		}
		candidates = append(candidates, el)
	}

	switch len(candidates) {
	case 0:
		return types.MatchResult{}
	case 1:
		score := 1.0
		return types.MatchResult{Matched: true, Element: &candidates[0], Score: &score}
	}

	minScore := ctx.MinScore
	if minScore <= 0 {
		minScore = types.DefaultMinScore
	}

	best, bestScore := -1, -1.0
	for i, el := range candidates {
		if s := Similarity(el.Text, target); s > bestScore {
			best, bestScore = i, s
		}
	}

	if bestScore < minScore {
		return types.MatchResult{}
	}
	return types.MatchResult{Matched: true, Element: &candidates[best], Score: &bestScore}
}

// MatchByPriority walks targets in ascending priority, ties keeping input
// order, and returns the first one found on screen
func MatchByPriority(targets []types.TextMatchTarget, elements []types.ScreenTextElement) (types.TextMatchTarget, types.ScreenTextElement, bool) {
	order := make([]int, len(targets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return targets[order[a]].EffectivePriority() < targets[order[b]].EffectivePriority()
	})

	for _, idx := range order {
		target := targets[idx]
		mode := target.MatchMode
		if mode == "" {
			mode = types.MatchContains
		}
		if res := FindText(elements, target.Text, mode); res.Matched {
			return target, *res.Element, true
		}
	}
	return types.TextMatchTarget{}, types.ScreenTextElement{}, false
}
