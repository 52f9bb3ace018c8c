package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Invariant 8: matchGlob("*") matches any subject, including "",
// matchGlob(s) matches itself literally, '?' matches exactly one code
// unit, and '\' escapes the following meta character.
func TestMatchGlobWildcardMatchesAnything(t *testing.T) {
	for _, s := range []string{"", "/http/requests", "a", "***"} {
		require.True(t, MatchGlob(s, "*", true), "subject %q", s)
	}
}

func TestMatchGlobLiteralMatchesItself(t *testing.T) {
	for _, s := range []string{"/http/requests", "a?b", "", "x*y"} {
		require.True(t, MatchGlob(s, s, true), "subject %q", s)
	}
}

func TestMatchGlobQuestionMarkMatchesExactlyOneCodeUnit(t *testing.T) {
	require.True(t, MatchGlob("a", "?", true))
	require.False(t, MatchGlob("", "?", true))
	require.False(t, MatchGlob("ab", "?", true))
	require.True(t, MatchGlob("ab", "??", true))
}

func TestMatchGlobEscapesMetaCharacters(t *testing.T) {
	require.True(t, MatchGlob("a*b", `a\*b`, true))
	require.False(t, MatchGlob("axb", `a\*b`, true))
	require.True(t, MatchGlob("a?b", `a\?b`, true))
	require.True(t, MatchGlob(`a\b`, `a\\b`, true))
}

func TestMatchGlobCaseSensitivityToggle(t *testing.T) {
	require.False(t, MatchGlob("/HTTP/requests", "/http/*", true))
	require.True(t, MatchGlob("/HTTP/requests", "/http/*", false))
}

func TestMatchGlobPrefixWildcard(t *testing.T) {
	require.True(t, MatchGlob("/http/requests", "/http/*", true))
	require.True(t, MatchGlob("/http/", "/http/*", true))
	require.False(t, MatchGlob("/https/requests", "/http/*", true))
}
