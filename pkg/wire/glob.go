package wire

// MatchGlob reports whether pattern matches s in full. '*' matches any
// run of code points (including none), '?' matches exactly one code
// point, and '\' escapes the following character so it is matched
// literally even if it is itself '*', '?', or '\'. Matching is
// case-sensitive unless caseSensitive is false, in which case both s
// and pattern are folded before comparison.
//
// This is the counter-name wildcard subscription primitive: a caller
// watching "/http/*" matches every counter name under that prefix.
func MatchGlob(s, pattern string, caseSensitive bool) bool {
	if !caseSensitive {
		s = foldCase(s)
		pattern = foldCase(pattern)
	}
	return matchGlobRunes([]rune(s), compileGlob([]rune(pattern)))
}

func foldCase(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, toLowerRune(r))
	}
	return string(out)
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

type globToken struct {
	star    bool
	any     bool // '?'
	literal rune
}

// compileGlob splits pattern into tokens, resolving '\' escapes. A
// trailing lone '\' is treated as a literal backslash.
func compileGlob(pattern []rune) []globToken {
	var toks []globToken
	for i := 0; i < len(pattern); i++ {
		switch r := pattern[i]; r {
		case '\\':
			if i+1 < len(pattern) {
				i++
				toks = append(toks, globToken{literal: pattern[i]})
			} else {
				toks = append(toks, globToken{literal: '\\'})
			}
		case '*':
			toks = append(toks, globToken{star: true})
		case '?':
			toks = append(toks, globToken{any: true})
		default:
			toks = append(toks, globToken{literal: r})
		}
	}
	return toks
}

// matchGlobRunes is a standard O(len(s)*len(pattern)) DP over code
// points: dp[si] tracks whether the tokens consumed so far can match
// the first si runes of s.
func matchGlobRunes(s []rune, toks []globToken) bool {
	dp := make([]bool, len(s)+1)
	dp[0] = true
	for _, tok := range toks {
		next := make([]bool, len(s)+1)
		if tok.star {
			anyTrue := false
			for si := 0; si <= len(s); si++ {
				anyTrue = anyTrue || dp[si]
				next[si] = anyTrue
			}
		} else {
			for si := 0; si < len(s); si++ {
				if dp[si] && (tok.any || tok.literal == s[si]) {
					next[si+1] = true
				}
			}
		}
		dp = next
	}
	return dp[len(s)]
}
