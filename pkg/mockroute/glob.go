package mockroute

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

var (
	globMu    sync.RWMutex
	globCache = make(map[string]*regexp.Regexp)
)

// Match reports whether rawURL matches the glob pattern using the same rules
// browser automation tools apply to route patterns:
//
//   - "*" matches any run of characters except "/"
//   - "**" between slashes (or at either end) matches any run of path segments
//   - "?" matches a literal question mark
//   - "{a,b}" matches either alternative
//   - "\" escapes the next character
//
// Patterns starting with "/" are matched against the path and query only, so
// "/api/franchise/*/store" matches "http://host/api/franchise/4/store".
// Everything else is matched against the full URL without its fragment.
func Match(pattern, rawURL string) bool {
	re, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(matchTarget(pattern, rawURL))
}

// ValidatePattern returns an error if pattern cannot be compiled.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty pattern")
	}
	_, err := compileGlob(pattern)
	return err
}

func matchTarget(pattern, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	if strings.HasPrefix(pattern, "/") {
		return u.RequestURI()
	}
	return u.String()
}

func compileGlob(pattern string) (*regexp.Regexp, error) {
	globMu.RLock()
	re, ok := globCache[pattern]
	globMu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(globToRegexp(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	globMu.Lock()
	globCache[pattern] = re
	globMu.Unlock()
	return re, nil
}

// globToRegexp translates a glob into an anchored regular expression.
func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	inGroup := false

	for i := 0; i < len(glob); i++ {
		c := glob[i]

		if c == '\\' && i+1 < len(glob) {
			i++
			b.WriteString(regexp.QuoteMeta(string(glob[i])))
			continue
		}

		if c == '*' {
			stars := 1
			for i+1 < len(glob) && glob[i+1] == '*' {
				stars++
				i++
			}
			start := i - stars + 1
			beforeSlash := start == 0 || glob[start-1] == '/'
			afterSlash := i+1 == len(glob) || glob[i+1] == '/'
			if stars > 1 && beforeSlash && afterSlash {
				// any number of whole segments, consuming the trailing slash
				b.WriteString(`((?:[^/]*(?:/|$))*)`)
				if i+1 < len(glob) {
					i++
				}
			} else {
				b.WriteString(`([^/]*)`)
			}
			continue
		}

		switch c {
		case '{':
			inGroup = true
			b.WriteString("(")
		case '}':
			inGroup = false
			b.WriteString(")")
		case ',':
			if inGroup {
				b.WriteString("|")
			} else {
				b.WriteString(",")
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString("$")
	return b.String()
}
