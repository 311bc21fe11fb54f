// Package glob compiles shell-style glob patterns into matchers. Two modes
// are exposed because the toolkit's two consumers need different semantics:
// Walker's glob_pattern matches a bare file/directory name, while Watcher's
// ignore_patterns match the full absolute path with ** spanning separators.
package glob

import (
	"regexp"
	"strings"
)

// Matcher matches either a basename or a full path, depending on how it
// was compiled.
type Matcher struct {
	re       *regexp.Regexp
	original string
}

func (m *Matcher) String() string { return m.original }

// MatchBasename reports whether name (no separators expected) matches.
func (m *Matcher) MatchBasename(name string) bool { return m.re.MatchString(name) }

// MatchPath reports whether the full path matches.
func (m *Matcher) MatchPath(path string) bool { return m.re.MatchString(path) }

// CompileBasename compiles a pattern that is matched against a bare file
// name, as used by Walker's glob_pattern filter. "*" and "?" behave as
// usual; "**" has no special spanning meaning here since there is nothing
// to span — it simply matches any run of characters, same as "*".
func CompileBasename(pattern string) (*Matcher, error) {
	reStr := "^" + globToRegex(pattern) + "$"
	re, err := regexp.Compile(reStr)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re, original: pattern}, nil
}

// CompilePath compiles a pattern matched against a full absolute path, as
// used by Watcher's ignore_patterns. "**" spans directory separators;
// "**/" in particular matches zero or more leading path segments. A
// pattern containing no "/" still matches anywhere in the path (as a
// bare-name convenience), mirroring how ignore lists are typically
// authored.
func CompilePath(pattern string) (*Matcher, error) {
	anchored := strings.Contains(pattern, "/")
	reStr := globToRegex(pattern)
	if anchored {
		reStr = "^" + reStr + "$"
	} else {
		reStr = "(^|/)" + reStr + "$"
	}
	re, err := regexp.Compile(reStr)
	if err != nil {
		return nil, err
	}
	return &Matcher{re: re, original: pattern}, nil
}

// globToRegex converts a glob pattern to a regex fragment. "**" followed
// by "/" spans zero or more directories; a bare "**" matches anything
// including separators; "*" matches anything except "/"; "?" matches one
// non-separator character; "[...]" character classes pass through with
// "!" negation translated to "^".
//
//nolint:gocyclo,revive // character-by-character glob parser, irreducible
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := pattern[i+1 : j]
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '(', ')', '+', '{', '}', '^', '$', '|', '\\':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
