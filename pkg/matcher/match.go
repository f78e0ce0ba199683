// Package matcher finds on-screen text elements by string comparison,
// fuzzy similarity, region and priority.
package matcher

import (
	"regexp"
	"strings"
	"sync"

	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

const maxCachedPatterns = 256

var (
	patternMu    sync.Mutex
	patternCache = make(map[string]*regexp.Regexp)
)

// IsMatched reports whether text satisfies target under mode. Exact is case
// sensitive; the other modes ignore case. An invalid regex never matches.
func IsMatched(text, target string, mode types.MatchMode) bool {
	switch mode {
	case types.MatchExact:
		return text == target
	case types.MatchContains:
		return strings.Contains(strings.ToLower(text), strings.ToLower(target))
	case types.MatchStartsWith:
		return strings.HasPrefix(strings.ToLower(text), strings.ToLower(target))
	case types.MatchEndsWith:
		return strings.HasSuffix(strings.ToLower(text), strings.ToLower(target))
	case types.MatchRegex:
		re := compile(target)
		return re != nil && re.MatchString(text)
	default:
		return false
	}
}

// compile returns the cached case insensitive pattern, nil when invalid
func compile(pattern string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()

	if re, ok := patternCache[pattern]; ok {
		return re
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		logger.LogDebug("matcher").Str("pattern", pattern).Err(err).Msg("Invalid regex pattern")
		re = nil
	}

	if len(patternCache) >= maxCachedPatterns {
		patternCache = make(map[string]*regexp.Regexp)
	}
	patternCache[pattern] = re
	return re
}

// ValidPattern reports whether pattern compiles as a match regex
func ValidPattern(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	return err
}
