package dispatch

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
)

// varMatcher validates a single route variable value.
// *regexp.Regexp satisfies this interface.
type varMatcher interface {
	MatchString(string) bool
	String() string
}

// patternMacros maps macro names usable as {var:macro} to pre-compiled
// validation patterns. The username macro is the character class accepted
// in profile usernames: word characters, dots, underscores, and hyphens.
var patternMacros = func() map[string]macro {
	raw := map[string]string{
		"username": `[a-zA-Z0-9._-]+`,
		"uuid":     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		"int":      `[0-9]+`,
		"slug":     `[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`,
		"alpha":    `[a-zA-Z]+`,
		"alphanum": `[a-zA-Z0-9]+`,
	}

	m := make(map[string]macro, len(raw))
	for name, pattern := range raw {
		m[name] = macro{
			pattern: pattern,
			matcher: regexp.MustCompile(fmt.Sprintf("^%s$", pattern)),
		}
	}
	return m
}()

// macro holds a pattern string and its pre-compiled validation matcher.
type macro struct {
	pattern string
	matcher varMatcher
}

// expandMacro resolves a variable pattern that may be a macro name.
// Returns the pattern string and, when the input was a macro, its
// pre-compiled matcher.
func expandMacro(patt string) (string, varMatcher) {
	if m, ok := patternMacros[patt]; ok {
		return m.pattern, m.matcher
	}
	return patt, nil
}

// pathPattern is a compiled route path template.
type pathPattern struct {
	// template is the original template string.
	template string
	// regexp matches the full request path.
	regexp *regexp.Regexp
	// reverse is the template with %s placeholders for Sprintf.
	reverse string
	// varsN are the variable names in declaration order.
	varsN []string
	// varsR validate each variable value on match and reverse build.
	varsR []varMatcher
	// strictSlash indicates optional trailing slash matching.
	strictSlash bool
}

// newPathPattern parses a path template and returns a compiled pathPattern.
func newPathPattern(tpl string, strictSlash bool) (*pathPattern, error) {
	idxs, err := braceIndices(tpl)
	if err != nil {
		return nil, err
	}

	const defaultPattern = "[^/]+"

	var (
		pattern bytes.Buffer
		reverse bytes.Buffer
		varsN   []string
		varsR   []varMatcher
		end     int
	)

	pattern.WriteByte('^')

	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]

		parts := strings.SplitN(tpl[idxs[i]+1:end-1], ":", 2)
		name := parts[0]
		patt := defaultPattern
		var compiledVarR varMatcher
		if len(parts) == 2 {
			patt, compiledVarR = expandMacro(parts[1])
		}

		if name == "" {
			return nil, fmt.Errorf("dispatch: missing variable name in %q from %q", tpl[idxs[i]:end], tpl)
		}

		fmt.Fprintf(&pattern, "%s(%s)", regexp.QuoteMeta(raw), patt)
		reverse.WriteString(strings.ReplaceAll(raw, "%", "%%"))
		reverse.WriteString("%s")

		varsN = append(varsN, name)
		if compiledVarR == nil {
			re, err := compileRegexp(fmt.Sprintf("^%s$", patt))
			if err != nil {
				return nil, fmt.Errorf("dispatch: invalid pattern %q in variable %q: %w", patt, name, err)
			}
			compiledVarR = re
		}
		varsR = append(varsR, compiledVarR)
	}

	raw := tpl[end:]

	// For strictSlash, the trailing slash becomes an optional [/]? group so
	// both forms match; the reverse template keeps the original for building.
	rawForPattern := raw
	if strictSlash && strings.HasSuffix(rawForPattern, "/") {
		rawForPattern = strings.TrimSuffix(rawForPattern, "/")
	}

	pattern.WriteString(regexp.QuoteMeta(rawForPattern))
	reverse.WriteString(strings.ReplaceAll(raw, "%", "%%"))

	if strictSlash {
		pattern.WriteString("[/]?")
	}
	pattern.WriteByte('$')

	reg, err := compileRegexp(pattern.String())
	if err != nil {
		return nil, err
	}

	if err := checkDuplicateVars(varsN); err != nil {
		return nil, err
	}

	return &pathPattern{
		template:    tpl,
		regexp:      reg,
		reverse:     reverse.String(),
		varsN:       varsN,
		varsR:       varsR,
		strictSlash: strictSlash,
	}, nil
}

// match reports whether the compiled pattern matches the request path.
func (p *pathPattern) match(reqPath string) bool {
	return p.regexp.MatchString(reqPath)
}

// build rebuilds a concrete path from the template and the given variable
// values, validating each value against its pattern.
func (p *pathPattern) build(values map[string]string) (string, error) {
	urlValues := make([]interface{}, len(p.varsN))
	for i, name := range p.varsN {
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("dispatch: missing route variable %q", name)
		}
		if !p.varsR[i].MatchString(v) {
			return "", fmt.Errorf("dispatch: variable %q value %q doesn't match %q", name, v, p.varsR[i].String())
		}
		urlValues[i] = v
	}
	return fmt.Sprintf(p.reverse, urlValues...), nil
}

// setVars extracts variables from the request path into dst.
// Returns true if the path matched the pattern.
func (p *pathPattern) setVars(reqPath string, dst map[string]string) bool {
	matches := p.regexp.FindStringSubmatch(reqPath)
	if matches == nil {
		return false
	}
	for i, name := range p.varsN {
		if i+1 < len(matches) {
			dst[name] = matches[i+1]
		}
	}
	return true
}

// braceIndices returns the start and end+1 indices of each top-level
// {...} pair in s. Returns an error if braces are unbalanced.
func braceIndices(s string) ([]int, error) {
	var (
		idxs  []int
		level int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idxs = append(idxs, i)
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("dispatch: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("dispatch: unbalanced braces in %q", s)
	}
	return idxs, nil
}

// checkDuplicateVars returns an error if any variable name is repeated.
func checkDuplicateVars(vars []string) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if seen[v] {
			return fmt.Errorf("dispatch: duplicated route variable %q", v)
		}
		seen[v] = true
	}
	return nil
}

// regexpCache caches compiled regular expressions by pattern string.
// The number of unique patterns is bounded by the number of registered
// routes, so the cache grows to a fixed size and stays there.
var regexpCache sync.Map

// compileRegexp returns a cached *regexp.Regexp for the given pattern,
// compiling and caching it on first use.
func compileRegexp(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexpCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := regexpCache.LoadOrStore(pattern, re)

	return actual.(*regexp.Regexp), nil
}

// cleanPath returns the canonical path for p, eliminating . and .. elements
// per RFC 3986 Section 5.2.4 (remove dot segments).
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes the trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}
